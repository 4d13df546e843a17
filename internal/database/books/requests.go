package books

import (
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/optional"
)

// NameRequest names an author or tag to attach to a book.
type NameRequest struct {
	Name string `json:"name"`
}

// BookFields are the scalar fields shared by create and update. Update uses
// replace semantics for them: an absent field clears the stored value.
type BookFields struct {
	ISBN10         optional.Value[string]  `json:"isbn10"`
	ISBN13         optional.Value[string]  `json:"isbn13"`
	PageCount      optional.Value[int]     `json:"page_count"`
	Publisher      optional.Value[string]  `json:"publisher"`
	Summary        optional.Value[string]  `json:"summary"`
	PublishedDate  optional.Value[string]  `json:"published_date"`
	Series         optional.Value[string]  `json:"series"`
	NumberInSeries optional.Value[float64] `json:"number_in_series"`
	AmazonID       optional.Value[string]  `json:"amazon_id"`
	GoodreadsID    optional.Value[string]  `json:"goodreads_id"`
	GoogleID       optional.Value[string]  `json:"google_id"`
	LibrarythingID optional.Value[string]  `json:"librarything_id"`
}

// replaceOn overwrites every scalar of b, clearing the ones that are absent.
// The cover image is not part of BookFields and is left alone.
func (f BookFields) replaceOn(b *entities.Book) {
	b.ISBN10 = f.ISBN10.Ptr()
	b.ISBN13 = f.ISBN13.Ptr()
	b.PageCount = f.PageCount.Ptr()
	b.Publisher = f.Publisher.Ptr()
	b.Summary = f.Summary.Ptr()
	b.PublishedDate = f.PublishedDate.Ptr()
	b.Series = f.Series.Ptr()
	b.NumberInSeries = f.NumberInSeries.Ptr()
	b.AmazonID = f.AmazonID.Ptr()
	b.GoodreadsID = f.GoodreadsID.Ptr()
	b.GoogleID = f.GoogleID.Ptr()
	b.LibrarythingID = f.LibrarythingID.Ptr()
}

type CreateBookRequest struct {
	Title string `json:"title"`
	BookFields
	Image   optional.Value[string] `json:"image"`
	Authors []NameRequest          `json:"authors"`
	Tags    []NameRequest          `json:"tags"`
}

// UpdateBookRequest carries a full replacement of the scalar fields. Title is
// applied only when non-blank. Authors and tags are merged into the existing
// sets and left unchanged when empty.
type UpdateBookRequest struct {
	Title optional.Value[string] `json:"title"`
	BookFields
	Authors []NameRequest `json:"authors"`
	Tags    []NameRequest `json:"tags"`
}

func names(in []NameRequest) []string {
	out := make([]string, 0, len(in))
	for _, n := range in {
		out = append(out, n.Name)
	}
	return out
}
