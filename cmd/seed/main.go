package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"

	"shoply/internal/app/marketplace/config"
	"shoply/internal/app/marketplace/entity"
	"shoply/pkg/logger"
)

// Заполняет базу демо-данными: два пользователя и стартовый каталог.
// Существующие данные удаляются
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init("marketplace-seed", "info")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer client.Disconnect(ctx)

	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping MongoDB")
	}

	db := client.Database(cfg.MongoDB.Database)
	users := db.Collection("users")
	products := db.Collection("products")

	// Очищаем существующие данные
	if _, err := users.DeleteMany(ctx, bson.M{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to clear users")
	}
	if _, err := products.DeleteMany(ctx, bson.M{}); err != nil {
		logger.Fatal().Err(err).Msg("Failed to clear products")
	}
	logger.Info().Msg("Cleared existing data")

	now := time.Now()

	seedUsers := make([]interface{}, 0, 2)
	for _, u := range []struct {
		name, email, password string
	}{
		{"John Doe", "john@example.com", "password123"},
		{"Jane Smith", "jane@example.com", "password123"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to hash password")
		}
		seedUsers = append(seedUsers, entity.User{
			Name:         u.name,
			Email:        u.email,
			PasswordHash: string(hash),
			Favorites:    []primitive.ObjectID{},
			CreatedAt:    now,
		})
	}

	if _, err := users.InsertMany(ctx, seedUsers); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed users")
	}
	logger.Info().Int("count", len(seedUsers)).Msg("Created users")

	seedProducts := []struct {
		title       string
		price       float64
		description string
		image       string
	}{
		{
			"Wireless Headphones", 79.99,
			"Premium wireless headphones with noise cancellation and 30-hour battery life. Perfect for music lovers and travelers.",
			"https://images.unsplash.com/photo-1505740420928-5e560c06d30e?w=500",
		},
		{
			"Smart Watch", 249.99,
			"Feature-packed smartwatch with fitness tracking, heart rate monitor, and smartphone notifications. Water-resistant design.",
			"https://images.unsplash.com/photo-1523275335684-37898b6baf30?w=500",
		},
		{
			"Laptop Stand", 39.99,
			"Ergonomic aluminum laptop stand with adjustable height. Improves posture and airflow for better cooling.",
			"https://images.unsplash.com/photo-1527864550417-7fd91fc51a46?w=500",
		},
		{
			"Mechanical Keyboard", 129.99,
			"RGB mechanical gaming keyboard with customizable keys and tactile switches. Perfect for gaming and typing.",
			"https://images.unsplash.com/photo-1587829741301-dc798b83add3?w=500",
		},
		{
			"USB-C Hub", 49.99,
			"Multi-port USB-C hub with HDMI, USB 3.0, SD card reader, and power delivery. Essential for modern laptops.",
			"https://images.unsplash.com/photo-1625948515291-69613efd103f?w=500",
		},
		{
			"Wireless Mouse", 29.99,
			"Ergonomic wireless mouse with precision tracking and long battery life. Compatible with all operating systems.",
			"https://images.unsplash.com/photo-1527814050087-3793815479db?w=500",
		},
		{
			"Phone Case", 19.99,
			"Durable protective phone case with shock absorption and raised edges. Stylish design with multiple color options.",
			"https://images.unsplash.com/photo-1601784551446-20c9e07cdbdb?w=500",
		},
		{
			"Portable Charger", 44.99,
			"High-capacity portable charger with fast charging support for phones, tablets, and other USB devices.",
			"https://images.unsplash.com/photo-1609091839311-d5365f9ff1c5?w=500",
		},
	}

	docs := make([]interface{}, 0, len(seedProducts))
	for i, p := range seedProducts {
		// Смещаем created_at чтобы порядок листинга был детерминированным
		createdAt := now.Add(time.Duration(i) * time.Second)
		docs = append(docs, entity.Product{
			Title:       p.title,
			Price:       p.price,
			Description: p.description,
			Image:       p.image,
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		})
	}

	if _, err := products.InsertMany(ctx, docs); err != nil {
		logger.Fatal().Err(err).Msg("Failed to seed products")
	}
	logger.Info().Int("count", len(docs)).Msg("Created products")

	logger.Info().Msg("Seeding completed")
}
