package database

import (
	"context"
	"fmt"
	"time"

	"usha_storefront/internal/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gocql/gocql"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores regroupe les connexions d'infrastructure. Chaque champ est nil quand
// le service correspondant n'est pas configuré ; les composants se replient alors
// sur leur variante en mémoire.
type Stores struct {
	Redis   *redis.Client
	Scylla  *gocql.Session
	Elastic *elasticsearch.Client
	MinIO   *minio.Client
}

// Connect ouvre les connexions configurées. Une connexion configurée mais
// injoignable est une erreur : mieux vaut ne pas démarrer.
func Connect(ctx context.Context, cfg config.Settings, log *zap.Logger) (*Stores, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	s := &Stores{}
	var err error

	if cfg.RedisHost != "" {
		if s.Redis, err = connectRedis(ctx, cfg); err != nil {
			return nil, err
		}
		log.Info("✅ Connecté à Redis", zap.String("addr", cfg.RedisHost))
	} else {
		log.Warn("⚠️ REDIS_HOST absent : synchronisation du panier et rate limit désactivés")
	}

	if len(cfg.ScyllaHosts) > 0 {
		if s.Scylla, err = connectScylla(cfg); err != nil {
			s.Close()
			return nil, err
		}
		if err := EnsureSchema(s.Scylla); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("✅ Connecté à ScyllaDB", zap.String("keyspace", cfg.ScyllaKeyspace))
	} else {
		log.Warn("⚠️ SCYLLA_HOSTS absent : écarts de réconciliation et audit gardés en mémoire")
	}

	if cfg.ElasticURL != "" {
		if s.Elastic, err = connectElastic(cfg); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("✅ Connecté à Elasticsearch")
	}

	if cfg.MinIOEndpoint != "" {
		if s.MinIO, err = connectMinIO(ctx, cfg); err != nil {
			s.Close()
			return nil, err
		}
		log.Info("✅ Connecté à MinIO", zap.String("endpoint", cfg.MinIOEndpoint), zap.String("bucket", cfg.MinIOBucket))
	}

	return s, nil
}

func (s *Stores) Close() {
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
	if s.Scylla != nil {
		s.Scylla.Close()
	}
}

func connectRedis(ctx context.Context, cfg config.Settings) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisHost,
		Password:     cfg.RedisPassword,
		DB:           0,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connexion Redis: %w", err)
	}
	return client, nil
}

func connectScylla(cfg config.Settings) (*gocql.Session, error) {
	cluster := gocql.NewCluster(cfg.ScyllaHosts...)
	cluster.Consistency = gocql.Quorum
	cluster.Timeout = 5 * time.Second
	cluster.NumConns = 4
	cluster.ReconnectInterval = time.Second
	cluster.PoolConfig.HostSelectionPolicy = gocql.TokenAwareHostPolicy(gocql.RoundRobinHostPolicy())
	if cfg.ScyllaUsername != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: cfg.ScyllaUsername,
			Password: cfg.ScyllaPassword,
		}
	}

	// le keyspace est créé au besoin : on ouvre d'abord une session sans keyspace
	bootstrap, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connexion ScyllaDB: %w", err)
	}
	err = bootstrap.Query(fmt.Sprintf(
		`CREATE KEYSPACE IF NOT EXISTS %s WITH replication = {'class': 'SimpleStrategy', 'replication_factor': 1}`,
		cfg.ScyllaKeyspace)).Exec()
	bootstrap.Close()
	if err != nil {
		return nil, fmt.Errorf("création keyspace %s: %w", cfg.ScyllaKeyspace, err)
	}

	cluster.Keyspace = cfg.ScyllaKeyspace
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("session ScyllaDB %s: %w", cfg.ScyllaKeyspace, err)
	}
	return session, nil
}

func connectElastic(cfg config.Settings) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.ElasticURL},
		Username:  cfg.ElasticUser,
		Password:  cfg.ElasticPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("client Elasticsearch: %w", err)
	}
	res, err := client.Info()
	if err != nil {
		return nil, fmt.Errorf("connexion Elasticsearch: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("connexion Elasticsearch: %s", res.Status())
	}
	return client, nil
}

func connectMinIO(ctx context.Context, cfg config.Settings) (*minio.Client, error) {
	client, err := minio.New(cfg.MinIOEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinIOAccessKey, cfg.MinIOSecretKey, ""),
		Secure: cfg.MinIOUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("client MinIO: %w", err)
	}
	exists, err := client.BucketExists(ctx, cfg.MinIOBucket)
	if err != nil {
		return nil, fmt.Errorf("vérification bucket MinIO: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinIOBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("création bucket MinIO: %w", err)
		}
	}
	return client, nil
}
