package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"shoply/internal/app/marketplace/entity"
	"shoply/pkg/logger"
	"shoply/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collectionUsers = "users"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyFavorited = errors.New("product already in favorites")
	ErrNotInFavorites   = errors.New("product not in favorites")
)

type userRepository struct {
	collection *mongo.Collection
}

// NewUserRepository создает новый репозиторий пользователей.
// Автоматически создает уникальный индекс по email
func NewUserRepository(db *mongo.Database) UserRepository {
	collection := db.Collection(collectionUsers)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	indexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "email", Value: 1},
		},
		Options: options.Index().SetName("email_idx").SetUnique(true),
	}

	if _, err := collection.Indexes().CreateOne(ctx, indexModel); err != nil {
		logger.Warn().Err(err).Msg("failed to create index on email")
	}

	return &userRepository{
		collection: collection,
	}
}

// GetByID получает пользователя по ID
func (r *userRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrUserNotFound
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpFind, collectionUsers)
	defer timer.ObserveDuration()

	var user entity.User
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		metrics.RecordMongoError(serviceName, metrics.MongoOpFind)
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// AddFavorite добавляет товар в избранное пользователя.
// Проверка отсутствия и вставка выполняются одной атомарной операцией:
// фильтр требует favorites != productID, обновление делает $addToSet.
// Два конкурентных добавления разных товаров не теряют друг друга,
// повторное добавление того же товара получает ErrAlreadyFavorited.
// Возвращает обновленный список избранного
func (r *userRepository) AddFavorite(ctx context.Context, userID, productID string) ([]primitive.ObjectID, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrProductNotFound
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpUpdate, collectionUsers)
	defer timer.ObserveDuration()

	filter := bson.M{"_id": uid, "favorites": bson.M{"$ne": pid}}
	update := bson.M{"$addToSet": bson.M{"favorites": pid}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user entity.User
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Фильтр не совпал: либо пользователя нет, либо товар уже в избранном.
			// Уточняющее чтение только на пути отказа - мутация уже атомарна
			return nil, r.classifyMissedFilter(ctx, uid, ErrAlreadyFavorited)
		}
		metrics.RecordMongoError(serviceName, metrics.MongoOpUpdate)
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	return user.Favorites, nil
}

// RemoveFavorite удаляет товар из избранного пользователя.
// Фильтр требует наличия товара в списке, обновление делает $pull -
// проверка и мутация атомарны так же, как в AddFavorite.
// Товар может быть уже удален из каталога: висячую ссылку удалить можно.
// Возвращает обновленный список избранного
func (r *userRepository) RemoveFavorite(ctx context.Context, userID, productID string) ([]primitive.ObjectID, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	pid, err := primitive.ObjectIDFromHex(productID)
	if err != nil {
		return nil, ErrNotInFavorites
	}

	timer := metrics.NewMongoTimer(serviceName, metrics.MongoOpUpdate, collectionUsers)
	defer timer.ObserveDuration()

	filter := bson.M{"_id": uid, "favorites": pid}
	update := bson.M{"$pull": bson.M{"favorites": pid}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user entity.User
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, r.classifyMissedFilter(ctx, uid, ErrNotInFavorites)
		}
		metrics.RecordMongoError(serviceName, metrics.MongoOpUpdate)
		return nil, fmt.Errorf("failed to remove favorite: %w", err)
	}

	if user.Favorites == nil {
		user.Favorites = []primitive.ObjectID{}
	}

	return user.Favorites, nil
}

// classifyMissedFilter различает "пользователь не существует" и нарушение
// precondition по избранному, когда условная мутация не совпала с фильтром
func (r *userRepository) classifyMissedFilter(ctx context.Context, uid primitive.ObjectID, preconditionErr error) error {
	err := r.collection.FindOne(ctx, bson.M{"_id": uid}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrUserNotFound
		}
		return fmt.Errorf("failed to check user: %w", err)
	}
	return preconditionErr
}
