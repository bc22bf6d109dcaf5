package entity

// CreateProductRequest - запрос на создание товара
type CreateProductRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Price       float64 `json:"price" validate:"min=0"`
	Description string  `json:"description" validate:"required,min=10"`
	Image       string  `json:"image" validate:"required"`
}

// UpdateProductRequest - запрос на обновление товара.
// Обновление полное: все четыре поля обязательны и валидируются как при создании
type UpdateProductRequest struct {
	Title       string  `json:"title" validate:"required,min=3"`
	Price       float64 `json:"price" validate:"min=0"`
	Description string  `json:"description" validate:"required,min=10"`
	Image       string  `json:"image" validate:"required"`
}

// ListQuery - параметры листинга каталога
type ListQuery struct {
	Search string // Подстрока для поиска по title/description, без учёта регистра
	Page   int    // Номер страницы, начиная с 1
	Limit  int    // Размер страницы
}

// Pagination - метаданные пагинации в ответе листинга
type Pagination struct {
	CurrentPage  int   `json:"currentPage"`
	TotalPages   int   `json:"totalPages"`
	TotalItems   int64 `json:"totalItems"`
	ItemsPerPage int   `json:"itemsPerPage"`
}

// ProductListData - payload ответа GET /products
type ProductListData struct {
	Products   []Product  `json:"products"`
	Pagination Pagination `json:"pagination"`
}

// FieldError - одно нарушение валидации, по одному на каждое невалидное поле
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// APIResponse - единый конверт всех ответов API
type APIResponse struct {
	Success bool         `json:"success"`
	Data    interface{}  `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}
