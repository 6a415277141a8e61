package usda

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

// newTestClient points a Client at server with limiting disabled.
func newTestClient(server *httptest.Server) *Client {
	c := NewClient("test-key", server.URL, 2)
	c.limiter = rate.NewLimiter(rate.Inf, 1)
	return c
}

func TestFetchSendsQueryParameters(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method: %s", r.Method)
		}
		q := r.URL.Query()
		if got := q.Get("query"); got != "chicken breast" {
			t.Errorf("query = %q, want %q", got, "chicken breast")
		}
		if got := q.Get("pageSize"); got != "2" {
			t.Errorf("pageSize = %q, want 2", got)
		}
		if got := q.Get("pageNumber"); got != "3" {
			t.Errorf("pageNumber = %q, want 3", got)
		}
		if got := q.Get("api_key"); got != "test-key" {
			t.Errorf("api_key = %q, want test-key", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"foods": []}`))
	}))
	defer server.Close()

	page, err := newTestClient(server).Fetch(context.Background(), "chicken breast", 3)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if page.Number != 3 {
		t.Errorf("page.Number = %d, want 3", page.Number)
	}
	if !page.Empty() {
		t.Errorf("expected empty page, got %d foods", len(page.Foods))
	}
}

func TestFetchExtractsNutrientsByName(t *testing.T) {
	body := `{"foods": [
		{"fdcId": 171077, "description": "Chicken, broiler, breast",
		 "foodNutrients": [
			{"nutrientName": "Protein", "unitName": "G", "value": 31.0},
			{"nutrientName": "Energy", "unitName": "kJ", "value": 690},
			{"nutrientName": "Energy", "unitName": "KCAL", "value": 165},
			{"nutrientName": "Total lipid (fat)", "unitName": "G", "value": 3.6},
			{"nutrientName": "Carbohydrate, by difference", "unitName": "G", "value": 0},
			{"nutrientName": "Fiber, total dietary", "unitName": "G", "value": 9}
		 ]},
		{"fdcId": 2, "description": "  Chicken, thigh  ", "foodNutrients": []}
	]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	page, err := newTestClient(server).Fetch(context.Background(), "chicken", 1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(page.Foods) != 2 {
		t.Fatalf("got %d foods, want 2", len(page.Foods))
	}

	want := Food{ID: "171077", Name: "Chicken, broiler, breast", Calories: 165, Fat: 3.6, Protein: 31, Carbohydrates: 0}
	if page.Foods[0] != want {
		t.Errorf("Foods[0] = %+v, want %+v", page.Foods[0], want)
	}

	thigh := page.Foods[1]
	if thigh.Name != "Chicken, thigh" {
		t.Errorf("name not trimmed: %q", thigh.Name)
	}
	if thigh.Calories != 0 || thigh.Fat != 0 || thigh.Protein != 0 || thigh.Carbohydrates != 0 {
		t.Errorf("missing nutrients should default to 0, got %+v", thigh)
	}
}

func TestFetchClampsInvalidValues(t *testing.T) {
	body := `{"foods": [{"fdcId": 7, "description": "Odd",
		"foodNutrients": [
			{"nutrientName": "Energy", "value": -12},
			{"nutrientName": "Total lipid (fat)", "value": "NaN"},
			{"nutrientName": "Protein", "value": null},
			{"nutrientName": "Carbohydrate, by difference", "value": "Infinity"}
		]}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	page, err := newTestClient(server).Fetch(context.Background(), "odd", 1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	f := page.Foods[0]
	for name, v := range map[string]float64{
		"calories": f.Calories, "fat": f.Fat, "protein": f.Protein, "carbohydrates": f.Carbohydrates,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v != 0 {
			t.Errorf("%s = %v, want 0", name, v)
		}
	}
}

func TestFetchNumericStringValues(t *testing.T) {
	body := `{"foods": [{"fdcId": "42", "description": "Beef",
		"foodNutrients": [{"nutrientName": "Protein", "value": "26.1"}]}]}`
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	page, err := newTestClient(server).Fetch(context.Background(), "beef", 1)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if page.Foods[0].ID != "42" {
		t.Errorf("ID = %q, want 42", page.Foods[0].ID)
	}
	if page.Foods[0].Protein != 26.1 {
		t.Errorf("Protein = %v, want 26.1", page.Foods[0].Protein)
	}
}

func TestFetchStatusErrors(t *testing.T) {
	tests := []struct {
		code int
		kind StatusKind
	}{
		{http.StatusUnauthorized, StatusUnauthorized},
		{http.StatusForbidden, StatusUnauthorized},
		{http.StatusTooManyRequests, StatusRateLimited},
		{http.StatusInternalServerError, StatusServerFault},
		{http.StatusBadGateway, StatusServerFault},
		{http.StatusNotFound, StatusOther},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer server.Close()

			_, err := newTestClient(server).Fetch(context.Background(), "chicken", 1)
			var se *StatusError
			if !errors.As(err, &se) {
				t.Fatalf("expected *StatusError, got %T: %v", err, err)
			}
			if se.Code != tt.code {
				t.Errorf("Code = %d, want %d", se.Code, tt.code)
			}
			if se.Kind() != tt.kind {
				t.Errorf("Kind() = %v, want %v", se.Kind(), tt.kind)
			}
		})
	}
}

func TestFetchParseErrors(t *testing.T) {
	bodies := map[string]string{
		"malformed":   `{"foods": [`,
		"not object":  `[1, 2, 3]`,
		"missing key": `{"totalHits": 0}`,
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer server.Close()

			_, err := newTestClient(server).Fetch(context.Background(), "chicken", 1)
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected *ParseError, got %T: %v", err, err)
			}
		})
	}
}

func TestFetchTransportErrors(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		c := newTestClient(server)
		server.Close()

		_, err := c.Fetch(context.Background(), "chicken", 1)
		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TransportError, got %T: %v", err, err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-release:
			case <-r.Context().Done():
			}
		}))
		defer server.Close()
		defer close(release)

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := newTestClient(server).Fetch(ctx, "chicken", 1)
		var te *TransportError
		if !errors.As(err, &te) {
			t.Fatalf("expected *TransportError, got %T: %v", err, err)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded in chain, got %v", err)
		}
	})
}

func TestFetchRespectsRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"foods": []}`))
	}))
	defer server.Close()

	c := newTestClient(server)
	c.SetRateLimit(0.001, 1)

	if _, err := c.Fetch(context.Background(), "chicken", 1); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := c.Fetch(ctx, "chicken", 2)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TransportError from limiter, got %T: %v", err, err)
	}
	if calls.Load() != 1 {
		t.Errorf("server saw %d calls, want 1", calls.Load())
	}
}

func TestNewClientDefaults(t *testing.T) {
	c := NewClient("", "", 0)
	if c.endpoint != DefaultEndpoint {
		t.Errorf("endpoint = %q, want default", c.endpoint)
	}
	if c.PageSize() != DefaultPageSize {
		t.Errorf("PageSize() = %d, want %d", c.PageSize(), DefaultPageSize)
	}
	if c.Available() {
		t.Error("Available() = true without API key")
	}
}
