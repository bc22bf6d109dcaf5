package util

import (
	"context"

	"shoply/internal/app/marketplace/entity"
)

// ListingCache интерфейс для работы с Redis кешем листинга каталога.
// Используется для dependency injection и упрощения тестирования
type ListingCache interface {
	SetDefaultListing(ctx context.Context, data *entity.ProductListData) error
	GetDefaultListing(ctx context.Context) (*entity.ProductListData, error)
	InvalidateListing(ctx context.Context) error
	Close() error
}

// MessagePublisher интерфейс для отправки сообщений в очередь (Kafka).
// Используется для dependency injection и упрощения тестирования
type MessagePublisher interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}
