package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"usha_storefront/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"
)

//
// --- INDEXATION DES COMMANDES ---
//

// orderDocument est la forme indexée d'une commande : seulement les champs cherchables
type orderDocument struct {
	ID        string    `json:"id"`
	Status    string    `json:"status"`
	OrderDate time.Time `json:"order_date"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Products  []string  `json:"products"`
}

func toDocument(o models.Order) orderDocument {
	doc := orderDocument{
		ID:        o.ID.String(),
		Status:    string(o.Status),
		OrderDate: o.OrderDate,
		FirstName: o.User.FirstName,
		LastName:  o.User.LastName,
		Email:     o.User.Email,
	}
	for _, it := range o.OrderItems {
		if it.Product.Name != "" {
			doc.Products = append(doc.Products, it.Product.Name)
		}
	}
	return doc
}

// OrderIndex indexe les commandes dans Elasticsearch pour la recherche admin
type OrderIndex struct {
	es    *elasticsearch.Client
	index string
	log   *zap.Logger
}

func NewOrderIndex(es *elasticsearch.Client, index string, log *zap.Logger) *OrderIndex {
	if log == nil {
		log = zap.NewNop()
	}
	return &OrderIndex{es: es, index: index, log: log.Named("elastic")}
}

// IndexOrders envoie les commandes en un seul appel _bulk
func (x *OrderIndex) IndexOrders(ctx context.Context, orders []models.Order) error {
	if len(orders) == 0 {
		return nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, o := range orders {
		meta := map[string]any{"index": map[string]any{"_index": x.index, "_id": o.ID.String()}}
		if err := enc.Encode(meta); err != nil {
			return fmt.Errorf("encodage bulk: %w", err)
		}
		if err := enc.Encode(toDocument(o)); err != nil {
			return fmt.Errorf("encodage bulk: %w", err)
		}
	}

	req := esapi.BulkRequest{
		Body:    &buf,
		Refresh: "true", // rend les commandes immédiatement visibles
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return fmt.Errorf("erreur envoi Elastic: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("Elastic a refusé l'indexation: %s", res.String())
	}

	var r struct {
		Errors bool `json:"errors"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return fmt.Errorf("erreur décodage JSON: %w", err)
	}
	if r.Errors {
		return errors.New("indexation partielle des commandes")
	}
	x.log.Debug("✅ commandes indexées", zap.Int("count", len(orders)))
	return nil
}

//
// --- RECHERCHE ---
//

// SearchOrderIDs cherche term dans l'id, le client et les noms de produits
func (x *OrderIndex) SearchOrderIDs(ctx context.Context, term string) ([]models.ID, error) {
	var buf bytes.Buffer
	q := map[string]any{
		"size":    1000,
		"_source": []string{"id"},
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":   strings.TrimSpace(term),
				"type":    "phrase_prefix",
				"fields":  []string{"id", "first_name", "last_name", "email", "products"},
				"lenient": true,
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("erreur encodage requête: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{x.index},
		Body:  &buf,
	}
	res, err := req.Do(ctx, x.es)
	if err != nil {
		return nil, fmt.Errorf("erreur requête Elastic: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("recherche Elastic: %s", res.String())
	}

	var r struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("erreur décodage JSON: %w", err)
	}

	ids := make([]models.ID, 0, len(r.Hits.Hits))
	for _, h := range r.Hits.Hits {
		n, err := strconv.ParseInt(h.ID, 10, 64)
		if err != nil {
			x.log.Warn("⚠️ identifiant indexé invalide", zap.String("id", h.ID))
			continue
		}
		ids = append(ids, models.ID(n))
	}
	return ids, nil
}
