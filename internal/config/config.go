package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Settings regroupe la configuration lue depuis l'environnement
type Settings struct {
	Port        string
	Environment string

	DataServiceURL string
	APITimeout     time.Duration

	SessionSecret string
	SessionMaxAge time.Duration
	CookieSecure  bool

	StripeSecretKey string
	AllowedOrigins  []string

	RedisHost     string
	RedisPassword string

	ScyllaHosts    []string
	ScyllaKeyspace string
	ScyllaUsername string
	ScyllaPassword string

	ElasticURL      string
	ElasticUser     string
	ElasticPassword string
	ElasticIndex    string

	MinIOEndpoint  string
	MinIOAccessKey string
	MinIOSecretKey string
	MinIOBucket    string
	MinIOUseSSL    bool

	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	MailFrom     string
	OpsEmail     string

	PayRateLimit  int
	PayRateWindow time.Duration
}

func Load() {
	err := godotenv.Load(".env")
	if err != nil {
		log.Println("⚠️  Aucun fichier .env trouvé, on continue avec les variables d'environnement du système")
	} else {
		log.Println("✅ Fichier .env chargé avec succès")
	}
}

// FromEnv construit Settings ; les valeurs absentes prennent leur défaut
func FromEnv() Settings {
	return Settings{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("APP_ENV", "development"),

		DataServiceURL: getEnv("DATA_SERVICE_URL", "http://localhost:3000"),
		APITimeout:     getDuration("API_TIMEOUT", 15*time.Second),

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionMaxAge: getDuration("SESSION_MAX_AGE", 24*time.Hour),
		CookieSecure:  getBool("COOKIE_SECURE", false),

		StripeSecretKey: os.Getenv("STRIPE_SECRET_KEY"),
		AllowedOrigins:  getList("ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		RedisHost:     os.Getenv("REDIS_HOST"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		ScyllaHosts:    getList("SCYLLA_HOSTS", nil),
		ScyllaKeyspace: getEnv("SCYLLA_KEYSPACE", "storefront"),
		ScyllaUsername: os.Getenv("SCYLLA_USERNAME"),
		ScyllaPassword: os.Getenv("SCYLLA_PASSWORD"),

		ElasticURL:      os.Getenv("ELASTIC_URL"),
		ElasticUser:     os.Getenv("ELASTIC_USER"),
		ElasticPassword: os.Getenv("ELASTIC_PASSWORD"),
		ElasticIndex:    getEnv("ELASTIC_ORDERS_INDEX", "orders"),

		MinIOEndpoint:  os.Getenv("MINIO_ENDPOINT"),
		MinIOAccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		MinIOSecretKey: os.Getenv("MINIO_SECRET_KEY"),
		MinIOBucket:    getEnv("MINIO_BUCKET", "products"),
		MinIOUseSSL:    getBool("MINIO_USE_SSL", false),

		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: os.Getenv("SMTP_USERNAME"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
		MailFrom:     getEnv("MAIL_FROM", "noreply@usha.lk"),
		OpsEmail:     os.Getenv("OPS_EMAIL"),

		PayRateLimit:  getInt("PAY_RATE_LIMIT", 10),
		PayRateWindow: getDuration("PAY_RATE_WINDOW", time.Minute),
	}
}

func (s Settings) IsProduction() bool {
	return s.Environment == "production"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return fallback
}

// getDuration accepte "15s" ou un nombre de secondes
func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if n, err := strconv.Atoi(raw); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}

func getList(key string, fallback []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
