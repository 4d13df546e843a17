// Package metadata looks up bibliographic data on OpenLibrary to prefill new
// catalog entries.
package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mrlokans/shelf/internal/repoerr"
)

const userAgent = "Shelf/1.0 (https://github.com/mrlokans/shelf)"

var errNotFound = errors.New("not found")

// OpenLibraryClient fetches book metadata from the OpenLibrary API.
type OpenLibraryClient struct {
	httpClient  *http.Client
	baseURL     string
	coversURL   string
	rateLimiter *rateLimiter
}

type rateLimiter struct {
	mu       sync.Mutex
	lastCall time.Time
	interval time.Duration
}

func newRateLimiter(interval time.Duration) *rateLimiter {
	return &rateLimiter{interval: interval}
}

func (r *rateLimiter) wait(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if since := time.Since(r.lastCall); since < r.interval {
		select {
		case <-time.After(r.interval - since):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.lastCall = time.Now()
	return nil
}

// NewOpenLibraryClient creates a client for baseURL limited to one request
// per second.
func NewOpenLibraryClient(baseURL string) *OpenLibraryClient {
	if baseURL == "" {
		baseURL = "https://openlibrary.org"
	}
	return &OpenLibraryClient{
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		coversURL:   "https://covers.openlibrary.org",
		rateLimiter: newRateLimiter(time.Second),
	}
}

// SearchByISBN looks up a single edition by ISBN-10 or ISBN-13.
func (c *OpenLibraryClient) SearchByISBN(ctx context.Context, isbn string) (*BookMetadata, error) {
	isbn = normalizeISBN(isbn)
	if isbn == "" {
		return nil, repoerr.Validation("isbn", "must have 10 or 13 digits")
	}

	var edition openLibraryEdition
	err := c.getJSON(ctx, fmt.Sprintf("%s/isbn/%s.json", c.baseURL, isbn), &edition)
	if errors.Is(err, errNotFound) {
		return nil, repoerr.NotFound("isbn", isbn)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch ISBN data: %w", err)
	}

	md := c.fromEdition(&edition, isbn)
	for _, ref := range edition.Authors {
		name, err := c.fetchAuthorName(ctx, ref.Key)
		if err != nil {
			continue
		}
		md.Authors = append(md.Authors, name)
	}
	return md, nil
}

// SearchByTitle returns the best search match for a title and optional
// author.
func (c *OpenLibraryClient) SearchByTitle(ctx context.Context, title, author string) (*BookMetadata, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, repoerr.Validation("title", "is required")
	}

	q := url.Values{}
	q.Set("title", title)
	if author = strings.TrimSpace(author); author != "" {
		q.Set("author", author)
	}
	q.Set("limit", "5")

	var result openLibrarySearchResult
	if err := c.getJSON(ctx, c.baseURL+"/search.json?"+q.Encode(), &result); err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}
	if len(result.Docs) == 0 {
		return nil, repoerr.NotFound("title", title)
	}

	return c.fromSearchDoc(bestMatch(result.Docs, title, author)), nil
}

func (c *OpenLibraryClient) fetchAuthorName(ctx context.Context, key string) (string, error) {
	if key == "" {
		return "", errors.New("empty author key")
	}
	var author struct {
		Name string `json:"name"`
	}
	if err := c.getJSON(ctx, c.baseURL+key+".json", &author); err != nil {
		return "", err
	}
	return author.Name, nil
}

func (c *OpenLibraryClient) getJSON(ctx context.Context, target string, v any) error {
	if err := c.rateLimiter.wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *OpenLibraryClient) fromEdition(e *openLibraryEdition, isbn string) *BookMetadata {
	md := &BookMetadata{
		Title:          strings.TrimSpace(strings.Join([]string{e.Title, e.Subtitle}, " ")),
		PageCount:      e.NumberOfPages,
		PublishedDate:  e.PublishDate,
		Subjects:       e.Subjects,
		OpenLibraryKey: e.Key,
		CoverURL:       fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, isbn),
	}
	if len(e.Publishers) > 0 {
		md.Publisher = e.Publishers[0]
	}
	if len(e.Series) > 0 {
		md.Series = e.Series[0]
	}
	md.Description = descriptionText(e.Description)

	md.ISBN10 = first(e.ISBN10)
	md.ISBN13 = first(e.ISBN13)
	switch len(isbn) {
	case 10:
		md.ISBN10 = isbn
	case 13:
		md.ISBN13 = isbn
	}
	if len(e.Identifiers.Goodreads) > 0 {
		md.GoodreadsID = e.Identifiers.Goodreads[0]
	}
	if len(e.Identifiers.LibraryThing) > 0 {
		md.LibrarythingID = e.Identifiers.LibraryThing[0]
	}
	if len(e.Identifiers.Amazon) > 0 {
		md.AmazonID = e.Identifiers.Amazon[0]
	}
	return md
}

func (c *OpenLibraryClient) fromSearchDoc(doc *openLibrarySearchDoc) *BookMetadata {
	md := &BookMetadata{
		Title:          doc.Title,
		Authors:        doc.AuthorName,
		OpenLibraryKey: doc.Key,
	}
	if doc.FirstPublishYear != 0 {
		md.PublishedDate = fmt.Sprint(doc.FirstPublishYear)
	}
	if len(doc.Publisher) > 0 {
		md.Publisher = doc.Publisher[0]
	}
	if len(doc.Subject) > 0 {
		md.Subjects = doc.Subject
		if len(md.Subjects) > 10 {
			md.Subjects = md.Subjects[:10]
		}
	}
	for _, isbn := range doc.ISBN {
		switch {
		case len(isbn) == 13 && md.ISBN13 == "":
			md.ISBN13 = isbn
		case len(isbn) == 10 && md.ISBN10 == "":
			md.ISBN10 = isbn
		}
	}
	switch {
	case doc.CoverI != 0:
		md.CoverURL = fmt.Sprintf("%s/b/id/%d-L.jpg", c.coversURL, doc.CoverI)
	case md.ISBN13 != "":
		md.CoverURL = fmt.Sprintf("%s/b/isbn/%s-L.jpg", c.coversURL, md.ISBN13)
	}
	return md
}

// bestMatch prefers an exact title, then a matching author, then entries
// that carry ISBNs.
func bestMatch(docs []openLibrarySearchDoc, title, author string) *openLibrarySearchDoc {
	title = strings.ToLower(title)
	author = strings.ToLower(author)

	best, bestScore := &docs[0], -1
	for i := range docs {
		doc := &docs[i]
		score := 0
		docTitle := strings.ToLower(doc.Title)
		if docTitle == title {
			score += 10
		} else if strings.Contains(docTitle, title) {
			score += 5
		}
		if author != "" {
			for _, name := range doc.AuthorName {
				if strings.Contains(strings.ToLower(name), author) {
					score += 10
					break
				}
			}
		}
		if len(doc.ISBN) > 0 {
			score += 2
		}
		if score > bestScore {
			best, bestScore = doc, score
		}
	}
	return best
}

// normalizeISBN strips separators and returns "" unless 10 or 13 characters
// remain.
func normalizeISBN(isbn string) string {
	isbn = strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
	if len(isbn) != 10 && len(isbn) != 13 {
		return ""
	}
	return strings.ToUpper(isbn)
}

func descriptionText(v any) string {
	switch d := v.(type) {
	case string:
		return d
	case map[string]any:
		if s, ok := d["value"].(string); ok {
			return s
		}
	}
	return ""
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

type authorRef struct {
	Key string `json:"key"`
}

type openLibraryEdition struct {
	Key           string      `json:"key"`
	Title         string      `json:"title"`
	Subtitle      string      `json:"subtitle"`
	Authors       []authorRef `json:"authors"`
	Publishers    []string    `json:"publishers"`
	PublishDate   string      `json:"publish_date"`
	NumberOfPages int         `json:"number_of_pages"`
	Description   any         `json:"description"` // string or {type, value}
	Subjects      []string    `json:"subjects"`
	Series        []string    `json:"series"`
	ISBN10        []string    `json:"isbn_10"`
	ISBN13        []string    `json:"isbn_13"`
	Identifiers   struct {
		Goodreads    []string `json:"goodreads"`
		LibraryThing []string `json:"librarything"`
		Amazon       []string `json:"amazon"`
	} `json:"identifiers"`
}

type openLibrarySearchResult struct {
	NumFound int                    `json:"numFound"`
	Docs     []openLibrarySearchDoc `json:"docs"`
}

type openLibrarySearchDoc struct {
	Key              string   `json:"key"`
	Title            string   `json:"title"`
	AuthorName       []string `json:"author_name"`
	FirstPublishYear int      `json:"first_publish_year"`
	Publisher        []string `json:"publisher"`
	ISBN             []string `json:"isbn"`
	CoverI           int      `json:"cover_i"`
	Subject          []string `json:"subject"`
}
