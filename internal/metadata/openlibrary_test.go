package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mrlokans/shelf/internal/repoerr"
)

func newTestClient(serverURL string) *OpenLibraryClient {
	client := NewOpenLibraryClient(serverURL)
	client.httpClient = &http.Client{Timeout: 5 * time.Second}
	client.rateLimiter = newRateLimiter(0)
	return client
}

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"978-0-13-468599-1", "9780134685991"},
		{"0-13-468599-6", "0134685996"},
		{"978 0 13 468599 1", "9780134685991"},
		{"080442957x", "080442957X"},
		{"123", ""},
		{"12345678901234", ""},
		{"", ""},
		{"  978-0-13-468599-1  ", "9780134685991"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result := normalizeISBN(tt.input)
			if result != tt.expected {
				t.Errorf("normalizeISBN(%q) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSearchByISBN(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/isbn/9780441172719.json":
			_, _ = w.Write([]byte(`{
				"key": "/books/OL26242482M",
				"title": "Dune",
				"authors": [{"key": "/authors/OL79034A"}],
				"publishers": ["Ace"],
				"publish_date": "1990",
				"number_of_pages": 535,
				"description": {"type": "/type/text", "value": "Desert planet."},
				"series": ["Dune Chronicles"],
				"isbn_10": ["0441172717"],
				"identifiers": {"goodreads": ["234225"]}
			}`))
		case "/authors/OL79034A.json":
			_ = json.NewEncoder(w).Encode(map[string]string{"name": "Frank Herbert"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	md, err := newTestClient(server.URL).SearchByISBN(context.Background(), "978-0-441-17271-9")
	if err != nil {
		t.Fatalf("SearchByISBN failed: %v", err)
	}

	if md.Title != "Dune" {
		t.Errorf("expected title 'Dune', got %q", md.Title)
	}
	if len(md.Authors) != 1 || md.Authors[0] != "Frank Herbert" {
		t.Errorf("expected author 'Frank Herbert', got %v", md.Authors)
	}
	if md.ISBN13 != "9780441172719" || md.ISBN10 != "0441172717" {
		t.Errorf("unexpected ISBNs %q / %q", md.ISBN10, md.ISBN13)
	}
	if md.Description != "Desert planet." {
		t.Errorf("expected description from object form, got %q", md.Description)
	}
	if md.Series != "Dune Chronicles" {
		t.Errorf("expected series, got %q", md.Series)
	}
	if md.GoodreadsID != "234225" {
		t.Errorf("expected goodreads id, got %q", md.GoodreadsID)
	}
	if md.CoverURL == "" {
		t.Error("expected cover URL to be set")
	}
}

func TestSearchByISBN_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SearchByISBN(context.Background(), "0000000000")
	if !errors.Is(err, repoerr.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestSearchByISBN_InvalidISBN(t *testing.T) {
	_, err := NewOpenLibraryClient("").SearchByISBN(context.Background(), "invalid")
	if !errors.Is(err, repoerr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestSearchByTitle(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if r.URL.Query().Get("title") != "Clean Code" {
			t.Errorf("unexpected title query %q", r.URL.Query().Get("title"))
		}
		response := openLibrarySearchResult{
			NumFound: 2,
			Docs: []openLibrarySearchDoc{
				{Title: "Clean Code: A Handbook", AuthorName: []string{"Someone Else"}},
				{
					Key:              "/works/OL789W",
					Title:            "Clean Code",
					AuthorName:       []string{"Robert C. Martin"},
					FirstPublishYear: 2008,
					ISBN:             []string{"0132350882", "9780132350884"},
					CoverI:           12345,
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	}))
	defer server.Close()

	md, err := newTestClient(server.URL).SearchByTitle(context.Background(), "Clean Code", "Martin")
	if err != nil {
		t.Fatalf("SearchByTitle failed: %v", err)
	}

	if md.Title != "Clean Code" {
		t.Errorf("expected title 'Clean Code', got %q", md.Title)
	}
	if md.ISBN13 != "9780132350884" || md.ISBN10 != "0132350882" {
		t.Errorf("unexpected ISBNs %q / %q", md.ISBN10, md.ISBN13)
	}
	if md.PublishedDate != "2008" {
		t.Errorf("expected published date 2008, got %q", md.PublishedDate)
	}
}

func TestSearchByTitle_NoResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openLibrarySearchResult{})
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).SearchByTitle(context.Background(), "Nonexistent Book Title XYZ", "")
	if !errors.Is(err, repoerr.ErrNotFound) {
		t.Errorf("expected not found error, got %v", err)
	}
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(50 * time.Millisecond)

	start := time.Now()
	_ = rl.wait(context.Background())
	_ = rl.wait(context.Background())

	if elapsed := time.Since(start); elapsed < 50*time.Millisecond {
		t.Errorf("rate limiter did not wait: elapsed=%v", elapsed)
	}
}

func TestRateLimiter_Cancelled(t *testing.T) {
	rl := newRateLimiter(time.Hour)
	_ = rl.wait(context.Background())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.wait(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
