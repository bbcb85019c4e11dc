package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server configures cmd/storefront-api.
type Server struct {
	HTTPPort           string
	GRPCPort           string
	MongoURI           string
	MongoDBName        string
	MongoMaxPoolSize   uint64
	MongoMinPoolSize   uint64
	OrderStore         string // "mongo" or "postgres"
	PostgresDSN        string
	RedisAddr          string // empty disables the shop cache
	RedisPassword      string
	ShopCacheTTL       time.Duration
	ShopCacheJitter    time.Duration
	KafkaBrokers       []string
	KafkaOrderTopic    string
	CartSync           bool // clear Redis session carts on order events
	CartSyncGroup      string
	MinOrderDistance   float64
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	CORSOrigins        []string
	OrderRatePerMinute int
	// TrustProxy takes the client address from X-Forwarded-For and friends;
	// only safe behind a proxy that overwrites them.
	TrustProxy         bool
	LogLevel           string
	DevLogging         bool
}

// Client configures cmd/storefront.
type Client struct {
	APIURL             string
	SessionID          string
	DBPath             string
	CartStore          string // "sqlite" or "redis"
	RedisAddr          string
	RedisPassword      string
	GeolocationTimeout time.Duration
	GeoIPURL           string
	RequestTimeout     time.Duration
	LogLevel           string
}

// LoadDotEnv reads .env into the process environment when the file exists.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("load .env: %w", err)
	}
	return nil
}

func LoadServer() (*Server, error) {
	minDistance, err := getFloat("MIN_ORDER_DISTANCE_METERS", 500)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getDuration("REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	rate, err := getInt("ORDER_RATE_PER_MINUTE", 10)
	if err != nil {
		return nil, err
	}
	maxPool, err := getInt("MONGO_MAX_POOL_SIZE", 50)
	if err != nil {
		return nil, err
	}
	minPool, err := getInt("MONGO_MIN_POOL_SIZE", 5)
	if err != nil {
		return nil, err
	}
	if maxPool < 1 || minPool < 0 {
		return nil, fmt.Errorf("mongo pool sizes must be positive, got max %d min %d", maxPool, minPool)
	}
	shopTTL, err := getDuration("SHOP_CACHE_TTL", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	shopJitter, err := getDuration("SHOP_CACHE_JITTER", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	cfg := &Server{
		HTTPPort:           getEnv("HTTP_PORT", "5000"),
		GRPCPort:           getEnv("GRPC_PORT", "50070"),
		MongoURI:           getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:        getEnv("MONGO_DB_NAME", "foodcourt"),
		MongoMaxPoolSize:   uint64(maxPool),
		MongoMinPoolSize:   uint64(minPool),
		OrderStore:         getEnv("ORDER_STORE", "mongo"),
		PostgresDSN:        getEnv("POSTGRES_DSN", "host=localhost port=5432 user=postgres password=postgres dbname=foodcourt sslmode=disable"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		ShopCacheTTL:       shopTTL,
		ShopCacheJitter:    shopJitter,
		KafkaBrokers:       getList("KAFKA_BROKERS", nil),
		KafkaOrderTopic:    getEnv("KAFKA_ORDER_TOPIC", "order-placed"),
		CartSync:           getEnv("CART_SYNC", "") == "true",
		CartSyncGroup:      getEnv("CART_SYNC_GROUP", "storefront-cart-cleaner"),
		MinOrderDistance:   minDistance,
		RequestTimeout:     requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		MaxRequestBodySize: 1 << 20, // 1MB
		CORSOrigins: getList("CORS_ORIGINS", []string{
			"http://localhost:5173",
			"http://localhost:5174",
			"https://india-food-court.vercel.app",
		}),
		OrderRatePerMinute: rate,
		TrustProxy:         getEnv("TRUST_PROXY", "") == "true",
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DevLogging:         getEnv("LOG_DEV", "") == "true",
	}

	if cfg.OrderStore != "mongo" && cfg.OrderStore != "postgres" {
		return nil, fmt.Errorf("ORDER_STORE must be mongo or postgres, got %q", cfg.OrderStore)
	}
	return cfg, nil
}

func LoadClient() (*Client, error) {
	geoTimeout, err := getDuration("GEOLOCATION_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	requestTimeout, err := getDuration("REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Client{
		APIURL:             strings.TrimRight(getEnv("STOREFRONT_API_URL", "http://localhost:5000/api"), "/"),
		SessionID:          getEnv("STOREFRONT_SESSION", "default"),
		DBPath:             getEnv("STOREFRONT_DB", "storefront.db"),
		CartStore:          getEnv("CART_STORE", "sqlite"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		GeolocationTimeout: geoTimeout,
		GeoIPURL:           getEnv("GEOIP_URL", "http://ip-api.com/json/"),
		RequestTimeout:     requestTimeout,
		LogLevel:           getEnv("LOG_LEVEL", "warn"),
	}

	if cfg.CartStore != "sqlite" && cfg.CartStore != "redis" {
		return nil, fmt.Errorf("CART_STORE must be sqlite or redis, got %q", cfg.CartStore)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}
