package services

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"usha_storefront/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// fakeElastic répond comme un cluster Elasticsearch minimal
type fakeElastic struct {
	mu        sync.Mutex
	bulkLines []string
	lastQuery map[string]any
	hits      []string
	status    int
}

func (f *fakeElastic) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("X-Elastic-Product", "Elasticsearch")
	w.Header().Set("Content-Type", "application/json")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = io.WriteString(w, `{"error":"boom"}`)
		return
	}
	switch {
	case strings.HasSuffix(r.URL.Path, "/_bulk"):
		sc := bufio.NewScanner(r.Body)
		for sc.Scan() {
			f.bulkLines = append(f.bulkLines, sc.Text())
		}
		_, _ = io.WriteString(w, `{"errors":false,"items":[]}`)
	case strings.HasSuffix(r.URL.Path, "/_search"):
		_ = json.NewDecoder(r.Body).Decode(&f.lastQuery)
		hits := make([]map[string]any, 0, len(f.hits))
		for _, id := range f.hits {
			hits = append(hits, map[string]any{"_id": id})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"hits": map[string]any{"hits": hits}})
	default:
		_, _ = io.WriteString(w, `{}`)
	}
}

func newIndex(t *testing.T, fake *fakeElastic) *OrderIndex {
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return NewOrderIndex(es, "orders", zaptest.NewLogger(t))
}

func TestOrderIndex_BulkIndexesSearchableFields(t *testing.T) {
	fake := &fakeElastic{}
	idx := newIndex(t, fake)

	err := idx.IndexOrders(context.Background(), []models.Order{{
		ID:     42,
		Status: models.OrderStatusPending,
		User:   models.OrderUser{FirstName: "Nimal", LastName: "Perera", Email: "nimal@example.com"},
		OrderItems: []models.OrderItem{
			{Product: models.Product{Name: "Mug personnalisé"}},
			{Product: models.Product{}},
		},
	}})
	require.NoError(t, err)

	require.Len(t, fake.bulkLines, 2)
	assert.Contains(t, fake.bulkLines[0], `"_id":"42"`)
	assert.Contains(t, fake.bulkLines[0], `"_index":"orders"`)

	var doc orderDocument
	require.NoError(t, json.Unmarshal([]byte(fake.bulkLines[1]), &doc))
	assert.Equal(t, "42", doc.ID)
	assert.Equal(t, "Perera", doc.LastName)
	assert.Equal(t, []string{"Mug personnalisé"}, doc.Products)
}

func TestOrderIndex_EmptyBatchIsNoop(t *testing.T) {
	fake := &fakeElastic{}
	idx := newIndex(t, fake)

	require.NoError(t, idx.IndexOrders(context.Background(), nil))
	assert.Empty(t, fake.bulkLines)
}

func TestOrderIndex_SearchReturnsIDs(t *testing.T) {
	fake := &fakeElastic{hits: []string{"7", "not-a-number", "12"}}
	idx := newIndex(t, fake)

	ids, err := idx.SearchOrderIDs(context.Background(), "  mug ")
	require.NoError(t, err)
	assert.Equal(t, []models.ID{7, 12}, ids)

	mm := fake.lastQuery["query"].(map[string]any)["multi_match"].(map[string]any)
	assert.Equal(t, "mug", mm["query"])
}

func TestOrderIndex_ErrorStatus(t *testing.T) {
	fake := &fakeElastic{status: http.StatusServiceUnavailable}
	idx := newIndex(t, fake)

	_, err := idx.SearchOrderIDs(context.Background(), "mug")
	assert.Error(t, err)
	assert.Error(t, idx.IndexOrders(context.Background(), []models.Order{{ID: 1}}))
}

func newSigner(t *testing.T) *ImageSigner {
	// la région évite l'appel réseau GetBucketLocation : la signature reste locale
	client, err := minio.New("minio.local:9000", &minio.Options{
		Creds:  credentials.NewStaticV4("access", "secret", ""),
		Region: "us-east-1",
	})
	require.NoError(t, err)
	return NewImageSigner(client, "products", 15*time.Minute, zaptest.NewLogger(t))
}

func TestImageSigner_SignsBucketObjects(t *testing.T) {
	s := newSigner(t)

	for _, in := range []string{"mugs/blue.png", "/mugs/blue.png", "http://minio.local:9000/products/mugs/blue.png"} {
		out := s.Sign(context.Background(), in)
		assert.Contains(t, out, "http://minio.local:9000/products/mugs/blue.png?", in)
		assert.Contains(t, out, "X-Amz-Signature=", in)
	}
}

func TestImageSigner_LeavesForeignURLs(t *testing.T) {
	s := newSigner(t)

	for _, in := range []string{"", "https://cdn.example.com/a.png", "http://minio.local:9000/other/a.png"} {
		assert.Equal(t, in, s.Sign(context.Background(), in))
	}

	products := []models.Product{{ImageURL: "https://cdn.example.com/a.png"}, {ImageURL: "a.png"}}
	s.SignProducts(context.Background(), products)
	assert.Equal(t, "https://cdn.example.com/a.png", products[0].ImageURL)
	assert.Contains(t, products[1].ImageURL, "X-Amz-Signature=")
}
