package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"shoply/internal/app/marketplace/entity"
	"shoply/pkg/logger"
	"shoply/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	serviceName        = "marketplace"
	collectionProducts = "products"
)

var (
	// Стандартные ошибки репозитория для обработки в service layer
	ErrProductNotFound = errors.New("product not found")
)

type productRepository struct {
	collection *mongo.Collection
}

// NewProductRepository создает новый репозиторий товаров.
// Автоматически создает индекс по created_at для сортировки листинга
func NewProductRepository(db *mongo.Database) ProductRepository {
	collection := db.Collection(collectionProducts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "created_at", Value: -1},
		},
		Options: options.Index().SetName("created_at_idx"),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		// Логируем ошибку, но не прерываем работу - индекс может уже существовать
		logger.Warn().Err(err).Msg("failed to create index on created_at")
	}

	return &productRepository{
		collection: collection,
	}
}

// Create создает новый товар в MongoDB
func (r *productRepository) Create(ctx context.Context, product *entity.Product) error {
	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpInsert, collectionProducts)
	defer timer.ObserveDuration()

	product.CreatedAt = time.Now()
	product.UpdatedAt = product.CreatedAt

	result, err := r.collection.InsertOne(ctx, product)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpInsert)
		return fmt.Errorf("failed to create product: %w", err)
	}

	// Устанавливаем ID из результата вставки
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		product.ID = oid
	}

	return nil
}

// GetByID получает товар по ID.
// Синтаксически невалидный ID эквивалентен отсутствующему товару
func (r *productRepository) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProductNotFound
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, collectionProducts)
	defer timer.ObserveDuration()

	var product entity.Product
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return &product, nil
}

// GetByIDs получает товары по списку ID одним запросом ($in).
// Отсутствующие ID молча пропускаются - порядок результата не гарантируется
func (r *productRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]entity.Product, error) {
	if len(ids) == 0 {
		return []entity.Product{}, nil
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, collectionProducts)
	defer timer.ObserveDuration()

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, nil
}

// Search получает страницу товаров с опциональным поиском по подстроке.
// Поиск регистронезависимый, по title или description; спецсимволы regex
// экранируются, ищется буквальная подстрока.
// Возвращает страницу и общее количество подходящих товаров
func (r *productRepository) Search(ctx context.Context, search string, page, limit int) ([]entity.Product, int64, error) {
	filter := bson.M{}
	if s := strings.TrimSpace(search); s != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter = bson.M{"$or": bson.A{
			bson.M{"title": pattern},
			bson.M{"description": pattern},
		}}
	}

	countTimer := metrics.NewMongoTimer(serviceName, metrics.MongoOpCount, collectionProducts)
	total, err := r.collection.CountDocuments(ctx, filter)
	countTimer.ObserveDuration()
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpCount)
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(page-1) * int64(limit)).
		SetLimit(int64(limit))

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, collectionProducts)
	defer timer.ObserveDuration()

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, 0, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	var products []entity.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}

	return products, total, nil
}

// Update атомарно заменяет все изменяемые поля товара и возвращает
// обновленный документ (FindOneAndUpdate с ReturnDocument After)
func (r *productRepository) Update(ctx context.Context, id string, fields *entity.UpdateProductRequest) (*entity.Product, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrProductNotFound
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpUpdate, collectionProducts)
	defer timer.ObserveDuration()

	update := bson.M{
		"$set": bson.M{
			"title":       fields.Title,
			"price":       fields.Price,
			"description": fields.Description,
			"image":       fields.Image,
			"updated_at":  time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var product entity.Product
	err = r.collection.FindOneAndUpdate(ctx, bson.M{"_id": objectID}, update, opts).Decode(&product)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrProductNotFound
		}
		metrics.RecordMongoError(serviceName, metrics.MongoOpUpdate)
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return &product, nil
}

// Delete удаляет товар из MongoDB.
// Избранное пользователей не трогается - ссылки становятся висячими
// и отбрасываются при чтении избранного
func (r *productRepository) Delete(ctx context.Context, id string) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrProductNotFound
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpDelete, collectionProducts)
	defer timer.ObserveDuration()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		metrics.RecordMongoError(serviceName, metrics.MongoOpDelete)
		return fmt.Errorf("failed to delete product: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrProductNotFound
	}

	return nil
}
