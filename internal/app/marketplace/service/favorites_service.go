package service

import (
	"context"
	"errors"
	"fmt"

	"shoply/internal/app/marketplace/entity"
	"shoply/internal/app/marketplace/repository"
	"shoply/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrAlreadyFavorited = errors.New("product already in favorites")
	ErrNotInFavorites   = errors.New("product not in favorites")
)

// FavoritesService обрабатывает бизнес-логику избранного.
// Список избранного хранится у пользователя как набор слабых ссылок:
// удаление товара из каталога не каскадирует, висячие ссылки молча
// отбрасываются при чтении
type FavoritesService struct {
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
}

// NewFavoritesService создает новый сервис избранного с внедрением зависимостей
func NewFavoritesService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
) *FavoritesService {
	return &FavoritesService{
		userRepo:    userRepo,
		productRepo: productRepo,
	}
}

// ListFavorites возвращает товары из избранного пользователя.
// ID резолвятся батч-запросом; порядок добавления сохраняется.
// Ссылки на удаленные товары отбрасываются без ошибки и без
// модификации хранимого списка
func (s *FavoritesService) ListFavorites(ctx context.Context, userID string) ([]entity.Product, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if len(user.Favorites) == 0 {
		return []entity.Product{}, nil
	}

	products, err := s.productRepo.GetByIDs(ctx, user.Favorites)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve favorites: %w", err)
	}

	// $in не гарантирует порядок - восстанавливаем порядок добавления
	byID := make(map[primitive.ObjectID]entity.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	resolved := make([]entity.Product, 0, len(user.Favorites))
	for _, id := range user.Favorites {
		if p, ok := byID[id]; ok {
			resolved = append(resolved, p)
		} else {
			metrics.DanglingFavoritesDropped.Inc()
		}
	}

	return resolved, nil
}

// AddFavorite добавляет товар в избранное пользователя.
// Повторное добавление - это ошибка ErrAlreadyFavorited, операция
// намеренно не идемпотентна.
// Возвращает обновленный список ID избранного
func (s *FavoritesService) AddFavorite(ctx context.Context, userID, productID string) ([]string, error) {
	// Товар должен существовать на момент добавления
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to verify product: %w", err)
	}

	favorites, err := s.userRepo.AddFavorite(ctx, userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyFavorited):
			metrics.RecordFavoriteMutation("add", "rejected")
			return nil, ErrAlreadyFavorited
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		case errors.Is(err, repository.ErrProductNotFound):
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to add favorite: %w", err)
	}

	metrics.RecordFavoriteMutation("add", "success")
	return favoriteIDs(favorites), nil
}

// RemoveFavorite удаляет товар из избранного пользователя.
// Существование товара в каталоге не проверяется - висячую ссылку
// удалить можно.
// Возвращает обновленный список ID избранного
func (s *FavoritesService) RemoveFavorite(ctx context.Context, userID, productID string) ([]string, error) {
	favorites, err := s.userRepo.RemoveFavorite(ctx, userID, productID)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotInFavorites):
			metrics.RecordFavoriteMutation("remove", "rejected")
			return nil, ErrNotInFavorites
		case errors.Is(err, repository.ErrUserNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to remove favorite: %w", err)
	}

	metrics.RecordFavoriteMutation("remove", "success")
	return favoriteIDs(favorites), nil
}

// favoriteIDs преобразует ObjectID в hex-строки для ответа API
func favoriteIDs(ids []primitive.ObjectID) []string {
	result := make([]string, 0, len(ids))
	for _, id := range ids {
		result = append(result, id.Hex())
	}
	return result
}
