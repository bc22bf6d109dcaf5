//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"shoply/internal/app/marketplace/entity"
	"shoply/internal/app/marketplace/handler"
	"shoply/internal/app/marketplace/repository"
	"shoply/internal/app/marketplace/service"
	"shoply/internal/app/marketplace/util"
	"shoply/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type MockKafkaProducer struct {
	mock.Mock
	Messages [][]byte
}

func (m *MockKafkaProducer) PublishMessage(ctx context.Context, key string, value []byte) error {
	m.Messages = append(m.Messages, value)
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKafkaProducer) Close() error { return nil }

type MarketplaceIntegrationTestSuite struct {
	suite.Suite
	client        *mongo.Client
	db            *mongo.Database
	redis         *miniredis.Miniredis
	cache         *util.RedisClient
	router        *gin.Engine
	kafkaProducer *MockKafkaProducer
	testUserID    primitive.ObjectID
}

func TestMarketplaceIntegrationSuite(t *testing.T) {
	suite.Run(t, new(MarketplaceIntegrationTestSuite))
}

func (s *MarketplaceIntegrationTestSuite) SetupSuite() {
	logger.InitWithWriter("marketplace-test", "error", io.Discard)

	mongoURI := getEnv("TEST_MONGODB_URI", "mongodb://localhost:27017")
	dbName := getEnv("TEST_MONGODB_DATABASE", "marketplace_test_db")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var err error
	s.client, err = mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	s.Require().NoError(err)
	s.Require().NoError(s.client.Ping(ctx, nil))

	s.db = s.client.Database(dbName)

	s.redis = miniredis.RunT(s.T())
	s.cache, err = util.NewRedisClient(s.redis.Addr(), "", 0)
	s.Require().NoError(err)

	productRepo := repository.NewProductRepository(s.db)
	userRepo := repository.NewUserRepository(s.db)

	s.kafkaProducer = &MockKafkaProducer{Messages: make([][]byte, 0)}

	catalogService := service.NewCatalogService(productRepo, s.cache, s.kafkaProducer)
	favoritesService := service.NewFavoritesService(userRepo, productRepo)

	productHandler := handler.NewProductHandler(catalogService)
	favoritesHandler := handler.NewFavoritesHandler(favoritesService)

	s.testUserID = primitive.NewObjectID()

	gin.SetMode(gin.TestMode)
	s.router = gin.New()

	authMiddleware := func(c *gin.Context) {
		c.Set("user_id", s.testUserID.Hex())
		c.Next()
	}

	products := s.router.Group("/products")
	products.GET("", productHandler.ListProducts)
	products.GET("/:id", productHandler.GetProduct)
	products.POST("", authMiddleware, productHandler.CreateProduct)
	products.PUT("/:id", authMiddleware, productHandler.UpdateProduct)
	products.DELETE("/:id", authMiddleware, productHandler.DeleteProduct)

	favorites := s.router.Group("/favorites", authMiddleware)
	favorites.GET("", favoritesHandler.ListFavorites)
	favorites.POST("/:productId", favoritesHandler.AddFavorite)
	favorites.DELETE("/:productId", favoritesHandler.RemoveFavorite)
}

func (s *MarketplaceIntegrationTestSuite) SetupTest() {
	ctx := context.Background()
	s.db.Collection("products").DeleteMany(ctx, bson.M{})
	s.db.Collection("users").DeleteMany(ctx, bson.M{})
	s.redis.FlushAll()

	s.kafkaProducer.Messages = make([][]byte, 0)
	s.kafkaProducer.ExpectedCalls = nil
	s.kafkaProducer.Calls = nil
	s.kafkaProducer.On("PublishMessage", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := s.db.Collection("users").InsertOne(ctx, entity.User{
		ID:        s.testUserID,
		Name:      "John Doe",
		Email:     "john@example.com",
		Favorites: []primitive.ObjectID{},
		CreatedAt: time.Now(),
	})
	s.Require().NoError(err)
}

func (s *MarketplaceIntegrationTestSuite) TearDownSuite() {
	if s.cache != nil {
		s.cache.Close()
	}
	if s.client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.client.Database(s.db.Name()).Drop(ctx)
		s.client.Disconnect(ctx)
	}
}

// === HELPERS ===

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func (s *MarketplaceIntegrationTestSuite) do(method, path string, payload interface{}) *httptest.ResponseRecorder {
	var body *bytes.Buffer
	if payload != nil {
		data, err := json.Marshal(payload)
		s.Require().NoError(err)
		body = bytes.NewBuffer(data)
	} else {
		body = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, body)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *MarketplaceIntegrationTestSuite) decode(w *httptest.ResponseRecorder) entity.APIResponse {
	var resp entity.APIResponse
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

// seedProduct вставляет товар напрямую в коллекцию, created_at задается
// смещением для детерминированного порядка листинга
func (s *MarketplaceIntegrationTestSuite) seedProduct(title, description string, price float64, createdAt time.Time) primitive.ObjectID {
	product := entity.Product{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Price:       price,
		Description: description,
		Image:       "https://example.com/product.jpg",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	_, err := s.db.Collection("products").InsertOne(context.Background(), product)
	s.Require().NoError(err)
	return product.ID
}

// === CATALOG ===

func (s *MarketplaceIntegrationTestSuite) TestCreateAndGetProduct() {
	w := s.do(http.MethodPost, "/products", entity.CreateProductRequest{
		Title:       "Wireless Headphones",
		Price:       79.99,
		Description: "Noise-cancelling over-ear headphones.",
		Image:       "https://example.com/headphones.jpg",
	})
	s.Equal(http.StatusCreated, w.Code)

	resp := s.decode(w)
	s.True(resp.Success)
	s.Equal("Product created successfully", resp.Message)

	created := resp.Data.(map[string]interface{})
	productID := created["id"].(string)
	s.NotEmpty(productID)

	w = s.do(http.MethodGet, "/products/"+productID, nil)
	s.Equal(http.StatusOK, w.Code)

	resp = s.decode(w)
	fetched := resp.Data.(map[string]interface{})
	s.Equal("Wireless Headphones", fetched["title"])
	s.Equal(79.99, fetched["price"])

	// Событие PRODUCT_CREATED отправлено
	s.Require().NotEmpty(s.kafkaProducer.Messages)
	var event entity.ProductEvent
	s.Require().NoError(json.Unmarshal(s.kafkaProducer.Messages[0], &event))
	s.Equal("PRODUCT_CREATED", event.EventType)
	s.Equal(productID, event.ProductID)
}

func (s *MarketplaceIntegrationTestSuite) TestGetProduct_MalformedID() {
	w := s.do(http.MethodGet, "/products/not-a-valid-objectid", nil)

	s.Equal(http.StatusNotFound, w.Code)
	resp := s.decode(w)
	s.False(resp.Success)
	s.Equal("Product not found", resp.Message)
}

func (s *MarketplaceIntegrationTestSuite) TestListProducts_PaginationAndOrder() {
	base := time.Now().Truncate(time.Millisecond)
	for i := 0; i < 25; i++ {
		s.seedProduct(fmt.Sprintf("Product %02d", i), "Generic product description here.", 10.0+float64(i), base.Add(time.Duration(i)*time.Second))
	}

	w := s.do(http.MethodGet, "/products?page=2&limit=10", nil)
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	data := resp.Data.(map[string]interface{})
	items := data["products"].([]interface{})
	pagination := data["pagination"].(map[string]interface{})

	s.Len(items, 10)
	s.Equal(float64(2), pagination["currentPage"])
	s.Equal(float64(3), pagination["totalPages"])
	s.Equal(float64(25), pagination["totalItems"])

	// Сортировка по created_at по убыванию: страница 2 начинается с Product 14
	first := items[0].(map[string]interface{})
	s.Equal("Product 14", first["title"])
}

func (s *MarketplaceIntegrationTestSuite) TestListProducts_PageBeyondRange() {
	base := time.Now()
	for i := 0; i < 5; i++ {
		s.seedProduct(fmt.Sprintf("Product %d", i), "Generic product description here.", 10.0, base.Add(time.Duration(i)*time.Second))
	}

	w := s.do(http.MethodGet, "/products?page=4&limit=10", nil)
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	data := resp.Data.(map[string]interface{})
	items := data["products"].([]interface{})
	pagination := data["pagination"].(map[string]interface{})

	s.Empty(items)
	s.Equal(float64(5), pagination["totalItems"])
	s.Equal(float64(1), pagination["totalPages"])
}

func (s *MarketplaceIntegrationTestSuite) TestSearch_CaseInsensitiveSubstring() {
	base := time.Now()
	s.seedProduct("Wireless Headphones", "Noise-cancelling over-ear headphones.", 79.99, base)
	s.seedProduct("Smart Watch", "Fitness tracking with wireless charging.", 249.99, base.Add(time.Second))
	s.seedProduct("Coffee Maker", "Programmable drip coffee maker.", 59.99, base.Add(2*time.Second))

	// Подстрока находится и в title, и в description, без учета регистра
	w := s.do(http.MethodGet, "/products?search=WIRELESS", nil)
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	data := resp.Data.(map[string]interface{})
	items := data["products"].([]interface{})
	s.Len(items, 2)
}

func (s *MarketplaceIntegrationTestSuite) TestSearch_LiteralSpecialCharacters() {
	base := time.Now()
	s.seedProduct("C++ Programming Book", "A classic programming reference.", 39.99, base)
	s.seedProduct("Cpp Stickers", "Sticker pack for laptops.", 4.99, base.Add(time.Second))

	// Метасимволы regex трактуются буквально
	w := s.do(http.MethodGet, "/products?search=C%2B%2B", nil)
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	data := resp.Data.(map[string]interface{})
	items := data["products"].([]interface{})
	s.Require().Len(items, 1)
	s.Equal("C++ Programming Book", items[0].(map[string]interface{})["title"])
}

func (s *MarketplaceIntegrationTestSuite) TestSearch_NoMatches() {
	s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	w := s.do(http.MethodGet, "/products?search=nonexistent", nil)
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	s.True(resp.Success)
	data := resp.Data.(map[string]interface{})
	s.Empty(data["products"])
}

func (s *MarketplaceIntegrationTestSuite) TestUpdateProduct_FullReplace() {
	productID := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	w := s.do(http.MethodPut, "/products/"+productID.Hex(), entity.UpdateProductRequest{
		Title:       "Smart Watch v2",
		Price:       299.99,
		Description: "Updated smartwatch with better battery.",
		Image:       "https://example.com/watch-v2.jpg",
	})
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	s.Equal("Product updated successfully", resp.Message)
	updated := resp.Data.(map[string]interface{})
	s.Equal("Smart Watch v2", updated["title"])
	s.Equal(299.99, updated["price"])
}

func (s *MarketplaceIntegrationTestSuite) TestUpdateProduct_NotFound() {
	w := s.do(http.MethodPut, "/products/"+primitive.NewObjectID().Hex(), entity.UpdateProductRequest{
		Title:       "Smart Watch v2",
		Price:       299.99,
		Description: "Updated smartwatch with better battery.",
		Image:       "https://example.com/watch-v2.jpg",
	})

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *MarketplaceIntegrationTestSuite) TestCreateProduct_ValidationErrors() {
	w := s.do(http.MethodPost, "/products", map[string]interface{}{
		"title":       "ab",
		"price":       -1,
		"description": "short",
		"image":       "",
	})

	s.Equal(http.StatusBadRequest, w.Code)
	resp := s.decode(w)
	s.False(resp.Success)
	s.Equal("Validation failed", resp.Message)
	s.Len(resp.Errors, 4)
}

func (s *MarketplaceIntegrationTestSuite) TestDeleteProduct_ThenGone() {
	productID := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	w := s.do(http.MethodDelete, "/products/"+productID.Hex(), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/products/"+productID.Hex(), nil)
	s.Equal(http.StatusNotFound, w.Code)

	// Повторное удаление - тоже 404
	w = s.do(http.MethodDelete, "/products/"+productID.Hex(), nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *MarketplaceIntegrationTestSuite) TestDefaultListingCache() {
	s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	// Первый запрос кладет дефолтную страницу в кеш
	w := s.do(http.MethodGet, "/products", nil)
	s.Equal(http.StatusOK, w.Code)
	s.True(s.redis.Exists("products:listing:default"))

	// Создание товара инвалидирует кеш
	w = s.do(http.MethodPost, "/products", entity.CreateProductRequest{
		Title:       "Coffee Maker",
		Price:       59.99,
		Description: "Programmable drip coffee maker.",
		Image:       "https://example.com/coffee.jpg",
	})
	s.Equal(http.StatusCreated, w.Code)
	s.False(s.redis.Exists("products:listing:default"))

	// Следующий листинг видит новый товар
	w = s.do(http.MethodGet, "/products", nil)
	resp := s.decode(w)
	data := resp.Data.(map[string]interface{})
	s.Len(data["products"].([]interface{}), 2)
}

// === FAVORITES ===

func (s *MarketplaceIntegrationTestSuite) TestAddAndListFavorites() {
	productID := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	w := s.do(http.MethodPost, "/favorites/"+productID.Hex(), nil)
	s.Equal(http.StatusOK, w.Code)

	resp := s.decode(w)
	s.True(resp.Success)
	s.Equal("Product added to favorites", resp.Message)
	ids := resp.Data.([]interface{})
	s.Require().Len(ids, 1)
	s.Equal(productID.Hex(), ids[0])

	w = s.do(http.MethodGet, "/favorites", nil)
	s.Equal(http.StatusOK, w.Code)

	resp = s.decode(w)
	favorites := resp.Data.([]interface{})
	s.Require().Len(favorites, 1)
	s.Equal("Smart Watch", favorites[0].(map[string]interface{})["title"])
}

func (s *MarketplaceIntegrationTestSuite) TestAddFavorite_DuplicateRejected() {
	productID := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	w := s.do(http.MethodPost, "/favorites/"+productID.Hex(), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/favorites/"+productID.Hex(), nil)
	s.Equal(http.StatusBadRequest, w.Code)
	resp := s.decode(w)
	s.Equal("Product already in favorites", resp.Message)

	// В избранном товар остался ровно один раз
	w = s.do(http.MethodGet, "/favorites", nil)
	resp = s.decode(w)
	s.Len(resp.Data.([]interface{}), 1)
}

func (s *MarketplaceIntegrationTestSuite) TestAddFavorite_NonexistentProduct() {
	w := s.do(http.MethodPost, "/favorites/"+primitive.NewObjectID().Hex(), nil)

	s.Equal(http.StatusNotFound, w.Code)
	resp := s.decode(w)
	s.Equal("Product not found", resp.Message)
}

func (s *MarketplaceIntegrationTestSuite) TestRemoveFavorite_DoubleRemoveRejected() {
	productID := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())

	w := s.do(http.MethodPost, "/favorites/"+productID.Hex(), nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/favorites/"+productID.Hex(), nil)
	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal("Product removed from favorites", resp.Message)
	s.Empty(resp.Data.([]interface{}))

	w = s.do(http.MethodDelete, "/favorites/"+productID.Hex(), nil)
	s.Equal(http.StatusBadRequest, w.Code)
	resp = s.decode(w)
	s.Equal("Product not in favorites", resp.Message)
}

func (s *MarketplaceIntegrationTestSuite) TestFavorites_DanglingReferenceDropped() {
	keptID := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now())
	doomedID := s.seedProduct("Coffee Maker", "Programmable drip coffee maker.", 59.99, time.Now())

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/favorites/"+keptID.Hex(), nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/favorites/"+doomedID.Hex(), nil).Code)

	// Удаление товара из каталога не каскадирует в избранное
	s.Equal(http.StatusOK, s.do(http.MethodDelete, "/products/"+doomedID.Hex(), nil).Code)

	w := s.do(http.MethodGet, "/favorites", nil)
	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	favorites := resp.Data.([]interface{})
	s.Require().Len(favorites, 1)
	s.Equal("Smart Watch", favorites[0].(map[string]interface{})["title"])

	// Висячая ссылка осталась в документе пользователя
	var user entity.User
	err := s.db.Collection("users").FindOne(context.Background(), bson.M{"_id": s.testUserID}).Decode(&user)
	s.Require().NoError(err)
	s.Len(user.Favorites, 2)

	// И ее можно удалить
	w = s.do(http.MethodDelete, "/favorites/"+doomedID.Hex(), nil)
	s.Equal(http.StatusOK, w.Code)
}

func (s *MarketplaceIntegrationTestSuite) TestFavorites_PreserveInsertionOrder() {
	first := s.seedProduct("Wireless Headphones", "Noise-cancelling over-ear headphones.", 79.99, time.Now())
	second := s.seedProduct("Smart Watch", "Fitness tracking smartwatch.", 249.99, time.Now().Add(time.Second))

	s.Equal(http.StatusOK, s.do(http.MethodPost, "/favorites/"+second.Hex(), nil).Code)
	s.Equal(http.StatusOK, s.do(http.MethodPost, "/favorites/"+first.Hex(), nil).Code)

	w := s.do(http.MethodGet, "/favorites", nil)
	resp := s.decode(w)
	favorites := resp.Data.([]interface{})
	s.Require().Len(favorites, 2)
	s.Equal("Smart Watch", favorites[0].(map[string]interface{})["title"])
	s.Equal("Wireless Headphones", favorites[1].(map[string]interface{})["title"])
}

// TestConcurrentAddFavorites проверяет, что параллельные добавления разных
// товаров не теряют обновления
func (s *MarketplaceIntegrationTestSuite) TestConcurrentAddFavorites() {
	const workers = 10

	productIDs := make([]primitive.ObjectID, workers)
	base := time.Now()
	for i := 0; i < workers; i++ {
		productIDs[i] = s.seedProduct(fmt.Sprintf("Product %d", i), "Generic product description here.", 10.0, base.Add(time.Duration(i)*time.Second))
	}

	var wg sync.WaitGroup
	statuses := make([]int, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i] = s.do(http.MethodPost, "/favorites/"+productIDs[i].Hex(), nil).Code
		}(i)
	}
	wg.Wait()

	for i, code := range statuses {
		s.Equalf(http.StatusOK, code, "add favorite %d failed", i)
	}

	w := s.do(http.MethodGet, "/favorites", nil)
	resp := s.decode(w)
	s.Len(resp.Data.([]interface{}), workers)
}
