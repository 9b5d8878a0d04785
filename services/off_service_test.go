package services

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOFFService(handler http.HandlerFunc) (*OFFService, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return &OFFService{
		client:    &http.Client{Timeout: 2 * time.Second},
		baseURL:   srv.URL,
		userAgent: "test",
	}, srv
}

func TestSearchNormalizesProducts(t *testing.T) {
	svc, srv := testOFFService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "banana", r.URL.Query().Get("search_terms"))
		w.Write([]byte(`{"products": [
			{"product_name": "Banana", "brands": "", "quantity": "120 g",
			 "categories_tags": ["en:fresh-fruits", "en:bananas"],
			 "nutriments": {"carbohydrates_100g": 23, "fat_100g": 0.3, "proteins_100g": 1.1}},
			{"product_name": "Empty Entry", "nutriments": {}}
		]}`))
	})
	defer srv.Close()

	candidates, err := svc.Search("banana")

	require.NoError(t, err)
	require.Len(t, candidates, 1) // the zero-macro entry is dropped
	assert.Equal(t, "Banana", candidates[0].Name)
	assert.Equal(t, 23.0, candidates[0].CarbsPer100g)
	assert.Equal(t, []string{"fresh fruits", "bananas"}, candidates[0].Categories)
	assert.Equal(t, "120 g", candidates[0].PackageQuantity)
}

func TestSearchShortQueryIsEmptyNotError(t *testing.T) {
	svc := NewOFFService()
	candidates, err := svc.Search("a")
	assert.NoError(t, err)
	assert.Nil(t, candidates)
}

func TestSearchServerErrorWrapsUpstream(t *testing.T) {
	svc, srv := testOFFService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := svc.Search("banana")

	assert.ErrorIs(t, err, ErrUpstream)
}

func TestLookupBarcodeFound(t *testing.T) {
	svc, srv := testOFFService(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2/product/8001505005707.json", r.URL.Path)
		w.Write([]byte(`{"status": 1, "product":
			{"product_name": "Grissini", "brands": "BreadCo",
			 "nutriments": {"carbohydrates_100g": 70, "fat_100g": 8, "proteins_100g": 12}}}`))
	})
	defer srv.Close()

	candidate, err := svc.LookupBarcode("8001505005707")

	require.NoError(t, err)
	require.NotNil(t, candidate)
	assert.Equal(t, "Grissini", candidate.Name)
	assert.Equal(t, "BreadCo", candidate.Brand)
}

func TestLookupBarcodeUnknownIsNilNotError(t *testing.T) {
	svc, srv := testOFFService(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"status": 0, "status_verbose": "product not found"}`))
	})
	defer srv.Close()

	candidate, err := svc.LookupBarcode("99999999")

	assert.NoError(t, err)
	assert.Nil(t, candidate)
}
