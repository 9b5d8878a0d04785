package services

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FoodCandidate is a normalized product record from the food database.
// Candidates live only for the duration of one analysis request.
type FoodCandidate struct {
	Name            string
	Brand           string
	CarbsPer100g    float64
	FatPer100g      float64
	ProteinPer100g  float64
	Categories      []string
	PackageQuantity string
}

// OFFService queries the Open Food Facts API by free text or barcode.
type OFFService struct {
	client    *http.Client
	baseURL   string
	userAgent string
}

func NewOFFService() *OFFService {
	return &OFFService{
		client:    &http.Client{Timeout: 10 * time.Second},
		baseURL:   "https://world.openfoodfacts.org",
		userAgent: "InsulinAI - backend - Version 1.0",
	}
}

type offProduct struct {
	ProductName    string   `json:"product_name"`
	Brands         string   `json:"brands"`
	CategoriesTags []string `json:"categories_tags"`
	Quantity       string   `json:"quantity"`
	Nutriments     struct {
		Carbs   float64 `json:"carbohydrates_100g"`
		Fat     float64 `json:"fat_100g"`
		Protein float64 `json:"proteins_100g"`
	} `json:"nutriments"`
}

type offSearchResponse struct {
	Products []offProduct `json:"products"`
}

type offProductResponse struct {
	Status  int        `json:"status"`
	Product offProduct `json:"product"`
}

// Search returns candidates for a free-text query. Queries shorter than two
// characters and empty result sets both yield an empty slice, not an error.
// Entries whose three macro fields are all zero are dropped at this boundary.
func (s *OFFService) Search(query string) ([]FoodCandidate, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, nil
	}

	u := fmt.Sprintf(
		"%s/cgi/search.pl?search_terms=%s&search_simple=1&action=process&json=1&page_size=10&fields=product_name,nutriments,brands,categories_tags,quantity",
		s.baseURL, url.QueryEscape(query),
	)

	var sr offSearchResponse
	if err := s.getJSON(u, &sr); err != nil {
		return nil, err
	}

	out := make([]FoodCandidate, 0, len(sr.Products))
	for _, p := range sr.Products {
		if c := normalizeProduct(p); c != nil {
			out = append(out, *c)
		}
	}
	return out, nil
}

// LookupBarcode fetches a single product by its EAN/UPC code. A missing
// product returns (nil, nil); barcode identity is exact by construction.
func (s *OFFService) LookupBarcode(code string) (*FoodCandidate, error) {
	u := fmt.Sprintf("%s/api/v2/product/%s.json", s.baseURL, url.PathEscape(code))

	var pr offProductResponse
	if err := s.getJSON(u, &pr); err != nil {
		return nil, err
	}
	if pr.Status != 1 {
		return nil, nil
	}
	return normalizeProduct(pr.Product), nil
}

func (s *OFFService) getJSON(u string, dst any) error {
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return fmt.Errorf("%w: build OFF request: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: call Open Food Facts: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read OFF response: %v", ErrUpstream, err)
	}
	// 404 on the product endpoint is how OFF reports an unknown barcode.
	if resp.StatusCode == http.StatusNotFound {
		return json.Unmarshal([]byte(`{"status":0}`), dst)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: OFF API error %d: %s", ErrUpstream, resp.StatusCode, string(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: parse OFF JSON: %v", ErrUpstream, err)
	}
	return nil
}

// normalizeProduct maps a raw OFF product to a candidate, or nil when the
// entry carries no usable macro data.
func normalizeProduct(p offProduct) *FoodCandidate {
	n := p.Nutriments
	if n.Carbs <= 0 && n.Fat <= 0 && n.Protein <= 0 {
		return nil
	}
	name := strings.TrimSpace(p.ProductName)
	if name == "" {
		name = "Unknown"
	}

	// categories arrive as "en:plain-yogurts"; keep the readable tail
	cats := make([]string, 0, len(p.CategoriesTags))
	for _, t := range p.CategoriesTags {
		if i := strings.IndexByte(t, ':'); i >= 0 {
			t = t[i+1:]
		}
		t = strings.ReplaceAll(t, "-", " ")
		if t != "" {
			cats = append(cats, t)
		}
	}

	return &FoodCandidate{
		Name:            name,
		Brand:           strings.TrimSpace(p.Brands),
		CarbsPer100g:    n.Carbs,
		FatPer100g:      n.Fat,
		ProteinPer100g:  n.Protein,
		Categories:      cats,
		PackageQuantity: strings.TrimSpace(p.Quantity),
	}
}
