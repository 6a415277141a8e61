// Package usda is the FoodData Central search client.
//
// Every Food leaving this package has finite, non-negative macros. The
// client owns that normalization so nothing downstream has to re-check.
package usda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultEndpoint is the FoodData Central search endpoint.
const DefaultEndpoint = "https://api.nal.usda.gov/fdc/v1/foods/search"

// DefaultPageSize is the number of foods requested per page.
const DefaultPageSize = 50

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 10 << 20

// Nutrient names looked up in foodNutrients.
const (
	nutrientEnergy  = "Energy"
	nutrientFat     = "Total lipid (fat)"
	nutrientProtein = "Protein"
	nutrientCarbs   = "Carbohydrate, by difference"
)

// Food is one normalized search result.
type Food struct {
	ID            string
	Name          string
	Calories      float64
	Fat           float64
	Protein       float64
	Carbohydrates float64
}

// Page is one batch of results for a query.
type Page struct {
	Number int
	Foods  []Food
}

// Empty reports whether the page carried no foods.
func (p Page) Empty() bool {
	return len(p.Foods) == 0
}

// Client searches FoodData Central.
type Client struct {
	apiKey   string
	endpoint string
	pageSize int
	client   *http.Client
	limiter  *rate.Limiter
}

// searchResponse is the subset of the search payload we read.
// Foods is a pointer so a body without the key is a parse error.
type searchResponse struct {
	Foods *[]searchFood `json:"foods"`
}

type searchFood struct {
	FdcID         json.Number      `json:"fdcId"`
	Description   string           `json:"description"`
	FoodNutrients []searchNutrient `json:"foodNutrients"`
}

type searchNutrient struct {
	NutrientName string        `json:"nutrientName"`
	UnitName     string        `json:"unitName"`
	Value        nutrientValue `json:"value"`
}

// nutrientValue accepts numbers, numeric strings, "NaN" and null. Anything
// unreadable becomes NaN and is clamped later.
type nutrientValue float64

func (v *nutrientValue) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*v = nutrientValue(math.NaN())
		return nil
	}
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = math.NaN()
	}
	*v = nutrientValue(f)
	return nil
}

// NewClient creates a Client. Empty endpoint and non-positive pageSize fall
// back to the defaults.
func NewClient(apiKey, endpoint string, pageSize int) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: endpoint,
		pageSize: pageSize,
		client:   &http.Client{Timeout: 30 * time.Second},
		limiter:  rate.NewLimiter(rate.Limit(4), 2),
	}
}

// SetRateLimit replaces the outbound limiter. rps <= 0 disables limiting.
func (c *Client) SetRateLimit(rps float64, burst int) {
	if burst < 1 {
		burst = 1
	}
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, burst)
		return
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
}

// PageSize returns the fixed number of foods requested per call.
func (c *Client) PageSize() int {
	return c.pageSize
}

// Available returns true if an API key is configured.
func (c *Client) Available() bool {
	return c.apiKey != ""
}

// Fetch requests one page (1-based) of results for query.
// Errors are *TransportError, *StatusError or *ParseError.
func (c *Client) Fetch(ctx context.Context, query string, page int) (Page, error) {
	if page < 1 {
		page = 1
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return Page{}, &TransportError{Err: fmt.Errorf("rate limiter wait: %w", err)}
	}

	reqURL, err := url.Parse(c.endpoint)
	if err != nil {
		return Page{}, &TransportError{Err: fmt.Errorf("parse endpoint: %w", err)}
	}
	params := reqURL.Query()
	params.Set("query", query)
	params.Set("pageSize", strconv.Itoa(c.pageSize))
	params.Set("pageNumber", strconv.Itoa(page))
	params.Set("api_key", c.apiKey)
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return Page{}, &TransportError{Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "foodlog/0.1")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return Page{}, &TransportError{Err: fmt.Errorf("request cancelled: %w", ctx.Err())}
		}
		return Page{}, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Page{}, &TransportError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return Page{}, &StatusError{Code: resp.StatusCode, Body: snippet}
	}

	foods, err := decodeFoods(body)
	if err != nil {
		return Page{}, &ParseError{Err: err}
	}
	return Page{Number: page, Foods: foods}, nil
}

// decodeFoods parses a search body into normalized foods.
func decodeFoods(body []byte) ([]Food, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, err
	}
	if sr.Foods == nil {
		return nil, errors.New("response has no foods list")
	}

	foods := make([]Food, 0, len(*sr.Foods))
	for _, f := range *sr.Foods {
		foods = append(foods, Food{
			ID:            f.FdcID.String(),
			Name:          strings.TrimSpace(f.Description),
			Calories:      energy(f.FoodNutrients),
			Fat:           nutrient(f.FoodNutrients, nutrientFat),
			Protein:       nutrient(f.FoodNutrients, nutrientProtein),
			Carbohydrates: nutrient(f.FoodNutrients, nutrientCarbs),
		})
	}
	return foods, nil
}

// nutrient returns the first value named name, clamped. Missing is 0.
func nutrient(list []searchNutrient, name string) float64 {
	for _, n := range list {
		if n.NutrientName == name {
			return clamp(float64(n.Value))
		}
	}
	return 0
}

// energy prefers the kcal entry; FDC also lists Energy in kJ.
func energy(list []searchNutrient) float64 {
	for _, n := range list {
		if n.NutrientName == nutrientEnergy && (n.UnitName == "" || strings.EqualFold(n.UnitName, "kcal")) {
			return clamp(float64(n.Value))
		}
	}
	return nutrient(list, nutrientEnergy)
}

// clamp maps NaN, infinities and negatives to 0.
func clamp(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0
	}
	return v
}
