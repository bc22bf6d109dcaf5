package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"shoply/internal/app/marketplace/entity"
	"shoply/internal/app/marketplace/repository"
	"shoply/internal/app/marketplace/util"
	"shoply/pkg/logger"
	"shoply/pkg/metrics"
)

var (
	// Ошибки бизнес-логики для обработки в handlers
	ErrProductNotFound = errors.New("product not found")
)

const (
	serviceName = "marketplace"

	defaultPage  = 1
	defaultLimit = 10
)

// CatalogService обрабатывает бизнес-логику каталога товаров.
// Координирует работу репозитория, Redis кеша и Kafka producer
type CatalogService struct {
	productRepo   repository.ProductRepository
	cache         util.ListingCache
	kafkaProducer util.MessagePublisher
}

// NewCatalogService создает новый сервис каталога с внедрением зависимостей
func NewCatalogService(
	productRepo repository.ProductRepository,
	cache util.ListingCache,
	kafkaProducer util.MessagePublisher,
) *CatalogService {
	return &CatalogService{
		productRepo:   productRepo,
		cache:         cache,
		kafkaProducer: kafkaProducer,
	}
}

// ListProducts возвращает страницу каталога с опциональным поиском.
// Дефолтная страница (без поиска, page=1, limit=10) кешируется в Redis;
// кеш инвалидируется при любом изменении каталога.
// Страница за пределами диапазона - это пустой список с корректными
// метаданными, не ошибка
func (s *CatalogService) ListProducts(ctx context.Context, query entity.ListQuery) (*entity.ProductListData, error) {
	page := query.Page
	if page < 1 {
		page = defaultPage
	}
	limit := query.Limit
	if limit < 1 {
		limit = defaultLimit
	}

	search := strings.TrimSpace(query.Search)
	isDefaultListing := search == "" && page == defaultPage && limit == defaultLimit

	if isDefaultListing {
		cached, err := s.cache.GetDefaultListing(ctx)
		if err == nil && cached != nil {
			metrics.RecordCacheHit(serviceName, listingKeyPrefix)
			return cached, nil
		}
		if err != nil {
			// Проблемы с кешем не критичны - идем в базу
			logger.Warn().Err(err).Msg("failed to read listing cache")
		}
		metrics.RecordCacheMiss(serviceName, listingKeyPrefix)
	}

	if search != "" {
		metrics.ProductSearches.Inc()
	}

	products, total, err := s.productRepo.Search(ctx, search, page, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	if products == nil {
		products = []entity.Product{}
	}

	totalPages := int((total + int64(limit) - 1) / int64(limit))

	data := &entity.ProductListData{
		Products: products,
		Pagination: entity.Pagination{
			CurrentPage:  page,
			TotalPages:   totalPages,
			TotalItems:   total,
			ItemsPerPage: limit,
		},
	}

	if isDefaultListing {
		if err := s.cache.SetDefaultListing(ctx, data); err != nil {
			logger.Warn().Err(err).Msg("failed to cache listing")
		}
	}

	return data, nil
}

// GetProduct получает товар по ID.
// Некорректный ID эквивалентен отсутствующему товару
func (s *CatalogService) GetProduct(ctx context.Context, id string) (*entity.Product, error) {
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return product, nil
}

// CreateProduct создает новый товар.
// 1. Сохраняет товар в MongoDB
// 2. Инвалидирует кеш листинга
// 3. Отправляет событие PRODUCT_CREATED в Kafka
func (s *CatalogService) CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error) {
	product := &entity.Product{
		Title:       req.Title,
		Price:       req.Price,
		Description: req.Description,
		Image:       req.Image,
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	metrics.ProductsCreated.Inc()
	s.invalidateListing(ctx)
	s.publishProductEvent(ctx, entity.ProductEvent{
		EventType: "PRODUCT_CREATED",
		ProductID: product.ID.Hex(),
		Title:     product.Title,
		Price:     product.Price,
		Timestamp: time.Now(),
	})

	return product, nil
}

// UpdateProduct заменяет все изменяемые поля товара.
// Обновление атомарно на уровне хранилища - никакого read-modify-write
func (s *CatalogService) UpdateProduct(ctx context.Context, id string, req *entity.UpdateProductRequest) (*entity.Product, error) {
	product, err := s.productRepo.Update(ctx, id, req)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	s.invalidateListing(ctx)
	s.publishProductEvent(ctx, entity.ProductEvent{
		EventType: "PRODUCT_UPDATED",
		ProductID: product.ID.Hex(),
		Title:     product.Title,
		Price:     product.Price,
		Timestamp: time.Now(),
	})

	return product, nil
}

// DeleteProduct удаляет товар из каталога.
// Избранное пользователей намеренно не трогается: ссылки на удаленный
// товар отбрасываются при чтении избранного
func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}

	metrics.ProductsDeleted.Inc()
	s.invalidateListing(ctx)
	s.publishProductEvent(ctx, entity.ProductEvent{
		EventType: "PRODUCT_DELETED",
		ProductID: id,
		Timestamp: time.Now(),
	})

	return nil
}

const listingKeyPrefix = "products:listing"

// invalidateListing сбрасывает кеш листинга.
// Ошибки кеша логируются и не прерывают операцию - каталог уже изменен
func (s *CatalogService) invalidateListing(ctx context.Context) {
	if err := s.cache.InvalidateListing(ctx); err != nil {
		logger.Warn().Err(err).Msg("failed to invalidate listing cache")
	}
}

// publishProductEvent отправляет событие о товаре в Kafka.
// Ошибки Kafka не критичны - изменение каталога уже применено
func (s *CatalogService) publishProductEvent(ctx context.Context, event entity.ProductEvent) {
	eventData, err := json.Marshal(event)
	if err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("failed to marshal product event")
		return
	}

	// Ключ = ProductID для сохранения порядка событий одного товара
	if err := s.kafkaProducer.PublishMessage(ctx, event.ProductID, eventData); err != nil {
		logger.Warn().Err(err).Str("event_type", event.EventType).Msg("failed to publish product event")
	}
}
