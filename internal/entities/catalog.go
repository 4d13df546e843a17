package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Book is a catalog entry shared by every user. Scalar metadata is nullable so
// that an update can clear a field by leaving it out.
type Book struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string    `gorm:"index;size:512;not null" json:"title"`
	ISBN10         *string   `gorm:"column:isbn10;size:16" json:"isbn10,omitempty"`
	ISBN13         *string   `gorm:"column:isbn13;size:20" json:"isbn13,omitempty"`
	PageCount      *int      `json:"page_count,omitempty"`
	Publisher      *string   `gorm:"size:256" json:"publisher,omitempty"`
	Summary        *string   `gorm:"type:text" json:"summary,omitempty"`
	Image          *string   `gorm:"size:1024" json:"image,omitempty"` // written by the cover store only
	PublishedDate  *string   `gorm:"size:32" json:"published_date,omitempty"`
	Series         *string   `gorm:"size:512" json:"series,omitempty"`
	NumberInSeries *float64  `json:"number_in_series,omitempty"`
	AmazonID       *string   `gorm:"size:64" json:"amazon_id,omitempty"`
	GoodreadsID    *string   `gorm:"size:64" json:"goodreads_id,omitempty"`
	GoogleID       *string   `gorm:"size:64" json:"google_id,omitempty"`
	LibrarythingID *string   `gorm:"size:64" json:"librarything_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Hydrated from book_authors/book_tags in link order. Duplicate links show
	// up as duplicate entries.
	Authors []Author `gorm:"-" json:"authors"`
	Tags    []Tag    `gorm:"-" json:"tags"`
}

// Author is shared by every book that links to it.
type Author struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:256;not null" json:"name"`
	NormalizedName string    `gorm:"uniqueIndex;size:256;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Tag has the same sharing semantics as Author.
type Tag struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name           string    `gorm:"size:100;not null" json:"name"`
	NormalizedName string    `gorm:"uniqueIndex;size:100;not null" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BookAuthor is one link row between a book and an author. Links carry their
// own key so the same pair may appear more than once.
type BookAuthor struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	BookID    uuid.UUID `gorm:"type:uuid;index;not null"`
	AuthorID  uuid.UUID `gorm:"type:uuid;index;not null"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time
}

// BookTag is one link row between a book and a tag.
type BookTag struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	BookID    uuid.UUID `gorm:"type:uuid;index;not null"`
	TagID     uuid.UUID `gorm:"type:uuid;index;not null"`
	Position  int       `gorm:"not null"`
	CreatedAt time.Time
}

func (Book) TableName() string {
	return "books"
}

func (Author) TableName() string {
	return "authors"
}

func (Tag) TableName() string {
	return "tags"
}

func (BookAuthor) TableName() string {
	return "book_authors"
}

func (BookTag) TableName() string {
	return "book_tags"
}

func (b *Book) BeforeCreate(tx *gorm.DB) error {
	return assignID(&b.ID)
}

func (a *Author) BeforeCreate(tx *gorm.DB) error {
	return assignID(&a.ID)
}

func (t *Tag) BeforeCreate(tx *gorm.DB) error {
	return assignID(&t.ID)
}

// AuthorIDs returns the ids of the hydrated authors in link order.
func (b *Book) AuthorIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Authors))
	for _, a := range b.Authors {
		ids = append(ids, a.ID)
	}
	return ids
}

// TagIDs returns the ids of the hydrated tags in link order.
func (b *Book) TagIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Tags))
	for _, t := range b.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// assignID fills a zero primary key with a time-ordered UUIDv7.
func assignID(id *uuid.UUID) error {
	if *id != uuid.Nil {
		return nil
	}
	v, err := uuid.NewV7()
	if err != nil {
		return err
	}
	*id = v
	return nil
}
