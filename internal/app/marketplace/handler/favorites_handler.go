package handler

import (
	"context"
	"errors"
	"net/http"

	"shoply/internal/app/marketplace/entity"
	"shoply/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
)

type FavoritesServiceInterface interface {
	ListFavorites(ctx context.Context, userID string) ([]entity.Product, error)
	AddFavorite(ctx context.Context, userID, productID string) ([]string, error)
	RemoveFavorite(ctx context.Context, userID, productID string) ([]string, error)
}

// FavoritesHandler обрабатывает HTTP запросы избранного.
// Все операции выполняются от имени аутентифицированного пользователя
type FavoritesHandler struct {
	favoritesService FavoritesServiceInterface
}

// NewFavoritesHandler создает новый обработчик избранного
func NewFavoritesHandler(favoritesService FavoritesServiceInterface) *FavoritesHandler {
	return &FavoritesHandler{
		favoritesService: favoritesService,
	}
}

// ListFavorites обрабатывает GET /favorites
// Товары, удаленные из каталога после добавления, в ответ не попадают
func (h *FavoritesHandler) ListFavorites(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	favorites, err := h.favoritesService.ListFavorites(c.Request.Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusNotFound, "User not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error fetching favorites")
		return
	}

	respondSuccess(c, http.StatusOK, "", favorites)
}

// AddFavorite обрабатывает POST /favorites/:productId
// Повторное добавление - это 400, не успех
func (h *FavoritesHandler) AddFavorite(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	favorites, err := h.favoritesService.AddFavorite(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			respondError(c, http.StatusNotFound, "Product not found")
		case errors.Is(err, service.ErrAlreadyFavorited):
			respondError(c, http.StatusBadRequest, "Product already in favorites")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		default:
			respondError(c, http.StatusInternalServerError, "Error adding to favorites")
		}
		return
	}

	respondSuccess(c, http.StatusOK, "Product added to favorites", favorites)
}

// RemoveFavorite обрабатывает DELETE /favorites/:productId
func (h *FavoritesHandler) RemoveFavorite(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}

	favorites, err := h.favoritesService.RemoveFavorite(c.Request.Context(), userID, c.Param("productId"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotInFavorites):
			respondError(c, http.StatusBadRequest, "Product not in favorites")
		case errors.Is(err, service.ErrUserNotFound):
			respondError(c, http.StatusNotFound, "User not found")
		default:
			respondError(c, http.StatusInternalServerError, "Error removing from favorites")
		}
		return
	}

	respondSuccess(c, http.StatusOK, "Product removed from favorites", favorites)
}

// callerID извлекает ID аутентифицированного пользователя из контекста Gin.
// При отсутствии отвечает за вызывающего и возвращает ok=false
func callerID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return "", false
	}

	userIDStr, ok := userID.(string)
	if !ok {
		respondError(c, http.StatusInternalServerError, "Invalid user ID")
		return "", false
	}

	return userIDStr, true
}
