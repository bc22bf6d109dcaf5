package handler

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"shoply/internal/app/marketplace/entity"
	"shoply/internal/app/marketplace/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type CatalogServiceInterface interface {
	ListProducts(ctx context.Context, query entity.ListQuery) (*entity.ProductListData, error)
	GetProduct(ctx context.Context, id string) (*entity.Product, error)
	CreateProduct(ctx context.Context, req *entity.CreateProductRequest) (*entity.Product, error)
	UpdateProduct(ctx context.Context, id string, req *entity.UpdateProductRequest) (*entity.Product, error)
	DeleteProduct(ctx context.Context, id string) error
}

// ProductHandler обрабатывает HTTP запросы каталога
type ProductHandler struct {
	catalogService CatalogServiceInterface
	validator      *validator.Validate
}

// NewProductHandler создает новый обработчик каталога
func NewProductHandler(catalogService CatalogServiceInterface) *ProductHandler {
	return &ProductHandler{
		catalogService: catalogService,
		validator:      newValidator(),
	}
}

// ListProducts обрабатывает GET /products
// Query параметры: search (подстрока), page (>=1, по умолчанию 1),
// limit (>=1, по умолчанию 10). Невалидные значения заменяются дефолтными
func (h *ProductHandler) ListProducts(c *gin.Context) {
	query := entity.ListQuery{
		Search: c.Query("search"),
		Page:   parsePositiveInt(c.Query("page"), 1),
		Limit:  parsePositiveInt(c.Query("limit"), 10),
	}

	data, err := h.catalogService.ListProducts(c.Request.Context(), query)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error fetching products")
		return
	}

	respondSuccess(c, http.StatusOK, "", data)
}

// GetProduct обрабатывает GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	product, err := h.catalogService.GetProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error fetching product")
		return
	}

	respondSuccess(c, http.StatusOK, "", product)
}

// CreateProduct обрабатывает POST /products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req entity.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	trimProductFields(&req.Title, &req.Description, &req.Image)

	if err := h.validator.Struct(req); err != nil {
		respondValidationErrors(c, formatValidationErrors(err))
		return
	}

	product, err := h.catalogService.CreateProduct(c.Request.Context(), &req)
	if err != nil {
		respondError(c, http.StatusInternalServerError, "Error creating product")
		return
	}

	respondSuccess(c, http.StatusCreated, "Product created successfully", product)
}

// UpdateProduct обрабатывает PUT /products/:id
// Обновление полное: все поля валидируются как при создании
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	var req entity.UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	trimProductFields(&req.Title, &req.Description, &req.Image)

	if err := h.validator.Struct(req); err != nil {
		respondValidationErrors(c, formatValidationErrors(err))
		return
	}

	product, err := h.catalogService.UpdateProduct(c.Request.Context(), c.Param("id"), &req)
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error updating product")
		return
	}

	respondSuccess(c, http.StatusOK, "Product updated successfully", product)
}

// DeleteProduct обрабатывает DELETE /products/:id
func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	if err := h.catalogService.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			respondError(c, http.StatusNotFound, "Product not found")
			return
		}
		respondError(c, http.StatusInternalServerError, "Error deleting product")
		return
	}

	respondSuccess(c, http.StatusOK, "Product deleted successfully", nil)
}

// === HELPER FUNCTIONS ===

// respondSuccess отправляет успешный ответ в едином конверте
func respondSuccess(c *gin.Context, status int, message string, data interface{}) {
	c.JSON(status, entity.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// respondError отправляет ответ об ошибке в едином конверте
func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, entity.APIResponse{
		Success: false,
		Message: message,
	})
}

// respondValidationErrors отправляет 400 со списком нарушений по полям
func respondValidationErrors(c *gin.Context, errs []entity.FieldError) {
	c.JSON(http.StatusBadRequest, entity.APIResponse{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

// newValidator создает валидатор, использующий json-имена полей в ошибках
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// formatValidationErrors превращает ошибки валидатора в сообщения по полям,
// по одному на каждое невалидное поле
func formatValidationErrors(err error) []entity.FieldError {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []entity.FieldError{{Field: "", Message: "Validation failed"}}
	}

	fieldErrors := make([]entity.FieldError, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, entity.FieldError{
			Field:   fe.Field(),
			Message: validationMessage(fe),
		})
	}
	return fieldErrors
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fe.Field() + " is required"
	case "min":
		if fe.Kind() == reflect.String {
			return fe.Field() + " must be at least " + fe.Param() + " characters"
		}
		return fe.Field() + " must be a positive number"
	default:
		return fe.Field() + " is invalid"
	}
}

// trimProductFields убирает пробельное обрамление текстовых полей до валидации
func trimProductFields(fields ...*string) {
	for _, f := range fields {
		*f = strings.TrimSpace(*f)
	}
}

// parsePositiveInt парсит положительное целое или возвращает fallback
func parsePositiveInt(value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
