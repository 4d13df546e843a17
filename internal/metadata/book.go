package metadata

import (
	"strings"

	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/optional"
)

// BookMetadata is what OpenLibrary knows about one book.
type BookMetadata struct {
	Title          string   `json:"title,omitempty"`
	Authors        []string `json:"authors,omitempty"`
	ISBN10         string   `json:"isbn10,omitempty"`
	ISBN13         string   `json:"isbn13,omitempty"`
	Publisher      string   `json:"publisher,omitempty"`
	PublishedDate  string   `json:"published_date,omitempty"`
	Description    string   `json:"description,omitempty"`
	Subjects       []string `json:"subjects,omitempty"`
	Series         string   `json:"series,omitempty"`
	PageCount      int      `json:"page_count,omitempty"`
	CoverURL       string   `json:"cover_url,omitempty"`
	OpenLibraryKey string   `json:"open_library_key,omitempty"`
	GoodreadsID    string   `json:"goodreads_id,omitempty"`
	LibrarythingID string   `json:"librarything_id,omitempty"`
	AmazonID       string   `json:"amazon_id,omitempty"`
}

// maxSubjectTags bounds how many subjects become tags.
const maxSubjectTags = 5

// ToCreateRequest prefills a book create from the metadata. Subjects become
// tags. The cover is fetched separately by the cover store.
func (m *BookMetadata) ToCreateRequest() books.CreateBookRequest {
	req := books.CreateBookRequest{
		Title: m.Title,
		BookFields: books.BookFields{
			ISBN10:         nonEmpty(m.ISBN10),
			ISBN13:         nonEmpty(m.ISBN13),
			Publisher:      nonEmpty(m.Publisher),
			Summary:        nonEmpty(m.Description),
			PublishedDate:  nonEmpty(m.PublishedDate),
			Series:         nonEmpty(m.Series),
			GoodreadsID:    nonEmpty(m.GoodreadsID),
			LibrarythingID: nonEmpty(m.LibrarythingID),
			AmazonID:       nonEmpty(m.AmazonID),
		},
	}
	if m.PageCount > 0 {
		req.PageCount = optional.Of(m.PageCount)
	}
	for _, name := range m.Authors {
		req.Authors = append(req.Authors, books.NameRequest{Name: name})
	}
	for i, subject := range m.Subjects {
		if i == maxSubjectTags {
			break
		}
		req.Tags = append(req.Tags, books.NameRequest{Name: subject})
	}
	return req
}

func nonEmpty(s string) optional.Value[string] {
	if s = strings.TrimSpace(s); s == "" {
		return optional.None[string]()
	}
	return optional.Of(s)
}
