package repository

import (
	"context"

	"shoply/internal/app/marketplace/entity"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductRepository определяет методы для работы с товарами в MongoDB
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]entity.Product, error)
	Search(ctx context.Context, search string, page, limit int) ([]entity.Product, int64, error)
	Update(ctx context.Context, id string, fields *entity.UpdateProductRequest) (*entity.Product, error)
	Delete(ctx context.Context, id string) error
}

// UserRepository определяет методы для работы с пользователями и их избранным.
// AddFavorite/RemoveFavorite выполняют проверку условия и мутацию одной
// атомарной операцией MongoDB - без раздельных read-then-write запросов
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*entity.User, error)
	AddFavorite(ctx context.Context, userID, productID string) ([]primitive.ObjectID, error)
	RemoveFavorite(ctx context.Context, userID, productID string) ([]primitive.ObjectID, error)
}
