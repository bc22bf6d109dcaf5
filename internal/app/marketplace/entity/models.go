package entity

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product представляет товар в каталоге
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Title       string             `json:"title" bson:"title"`             // Название, минимум 3 символа
	Price       float64            `json:"price" bson:"price"`             // Цена, неотрицательная
	Description string             `json:"description" bson:"description"` // Описание, минимум 10 символов
	Image       string             `json:"image" bson:"image"`             // URL изображения
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// User представляет пользователя и его избранное.
// Аутентификацией занимается внешний auth-сервис, здесь пользователь
// нужен как владелец списка избранного.
// favorites хранит ObjectID товаров: это слабые ссылки, товар может быть
// удалён из каталога после добавления - такие ссылки отбрасываются при чтении
type User struct {
	ID           primitive.ObjectID   `json:"id" bson:"_id,omitempty"`
	Name         string               `json:"name" bson:"name"`
	Email        string               `json:"email" bson:"email"`
	PasswordHash string               `json:"-" bson:"password_hash"` // не возвращаем в JSON
	Favorites    []primitive.ObjectID `json:"favorites" bson:"favorites"`
	CreatedAt    time.Time            `json:"created_at" bson:"created_at"`
}

// ProductEvent - событие об изменении товара для Kafka
type ProductEvent struct {
	EventType string    `json:"event_type"` // PRODUCT_CREATED, PRODUCT_UPDATED, PRODUCT_DELETED
	ProductID string    `json:"product_id"`
	Title     string    `json:"title,omitempty"`
	Price     float64   `json:"price,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
