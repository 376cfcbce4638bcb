package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"usha_storefront/internal/models"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// ImageSigner remplace les images produit stockées dans MinIO par des URL signées.
// Les URL absolues hors bucket (CDN, http externe) sont laissées telles quelles.
type ImageSigner struct {
	client   *minio.Client
	bucket   string
	duration time.Duration
	log      *zap.Logger
}

func NewImageSigner(client *minio.Client, bucket string, duration time.Duration, log *zap.Logger) *ImageSigner {
	if log == nil {
		log = zap.NewNop()
	}
	return &ImageSigner{client: client, bucket: bucket, duration: duration, log: log.Named("minio")}
}

// objectKey retourne la clé dans le bucket, ou false si l'image n'y est pas
func (s *ImageSigner) objectKey(imageURL string) (string, bool) {
	if imageURL == "" {
		return "", false
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return "", false
	}
	if u.IsAbs() {
		// Nettoie l'URL complète pour ne garder que le chemin relatif au bucket
		if u.Host != s.client.EndpointURL().Host {
			return "", false
		}
		prefix := "/" + s.bucket + "/"
		if !strings.HasPrefix(u.Path, prefix) {
			return "", false
		}
		return strings.TrimPrefix(u.Path, prefix), true
	}
	return strings.TrimPrefix(u.Path, "/"), true
}

// Sign retourne une URL signée, ou l'URL d'origine si la signature échoue
func (s *ImageSigner) Sign(ctx context.Context, imageURL string) string {
	key, ok := s.objectKey(imageURL)
	if !ok {
		return imageURL
	}
	signed, err := s.client.PresignedGetObject(ctx, s.bucket, key, s.duration, url.Values{})
	if err != nil {
		s.log.Warn("⚠️ URL signée impossible", zap.String("key", key), zap.Error(err))
		return imageURL
	}
	return signed.String()
}

// SignProducts signe les images de chaque produit en place
func (s *ImageSigner) SignProducts(ctx context.Context, products []models.Product) {
	for i := range products {
		products[i].ImageURL = s.Sign(ctx, products[i].ImageURL)
	}
}
