package entities

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;size:100;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	return assignID(&u.ID)
}

type ReadingEventType string

const (
	ReadingEventCurrentlyReading ReadingEventType = "CURRENTLY_READING"
	ReadingEventFinished         ReadingEventType = "FINISHED"
	ReadingEventDropped          ReadingEventType = "DROPPED"
)

var readingEventTypes = []ReadingEventType{
	ReadingEventCurrentlyReading,
	ReadingEventFinished,
	ReadingEventDropped,
}

// ReadingEventTypes lists every known event type.
func ReadingEventTypes() []ReadingEventType {
	out := make([]ReadingEventType, len(readingEventTypes))
	copy(out, readingEventTypes)
	return out
}

func (t ReadingEventType) Valid() bool {
	for _, known := range readingEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// LastEventCache mirrors the most recent ReadingEvent of a UserBook. Both
// columns are nil until the first event is recorded.
type LastEventCache struct {
	LastReadingEvent     *ReadingEventType `gorm:"column:last_reading_event;size:32;index" json:"last_reading_event,omitempty"`
	LastReadingEventDate *time.Time        `gorm:"column:last_reading_event_date;index" json:"last_reading_event_date,omitempty"`
}

// UserBook is one user's tracking record for one book. The (user, book) pair is
// unique.
type UserBook struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_book" json:"user_id"`
	BookID        uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_user_book" json:"book_id"`
	User          User      `gorm:"foreignKey:UserID" json:"-"`
	Book          Book      `gorm:"foreignKey:BookID" json:"book"`
	Owned         bool      `gorm:"not null;default:false" json:"owned"`
	ToRead        bool      `gorm:"not null;default:false;index" json:"to_read"`
	PercentRead   *int      `json:"percent_read,omitempty"`
	PersonalNotes *string   `gorm:"type:text" json:"personal_notes,omitempty"`
	LastEventCache
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (UserBook) TableName() string {
	return "user_books"
}

func (ub *UserBook) BeforeCreate(tx *gorm.DB) error {
	return assignID(&ub.ID)
}

// LastEvent hands out write access to the cache fields only.
func (ub *UserBook) LastEvent() LastEventHandle {
	return LastEventHandle{UserBookID: ub.ID, cache: &ub.LastEventCache}
}

// LastEventHandle is the write contract given to the reading event recorder.
// It can change the cached type and date of one UserBook and nothing else.
type LastEventHandle struct {
	UserBookID uuid.UUID
	cache      *LastEventCache
}

// NewLastEventHandle builds a handle for a UserBook that is not loaded in
// memory. Set still returns the columns to persist.
func NewLastEventHandle(userBookID uuid.UUID) LastEventHandle {
	return LastEventHandle{UserBookID: userBookID, cache: &LastEventCache{}}
}

// Set records the new last event in the cache and returns the columns to write.
func (h LastEventHandle) Set(eventType ReadingEventType, at time.Time) map[string]any {
	if h.cache != nil {
		t := eventType
		d := at
		h.cache.LastReadingEvent = &t
		h.cache.LastReadingEventDate = &d
	}
	return map[string]any{
		"last_reading_event":      eventType,
		"last_reading_event_date": at,
	}
}

// Clear resets the cache and returns the columns to write.
func (h LastEventHandle) Clear() map[string]any {
	if h.cache != nil {
		h.cache.LastReadingEvent = nil
		h.cache.LastReadingEventDate = nil
	}
	return map[string]any{
		"last_reading_event":      nil,
		"last_reading_event_date": nil,
	}
}

// ReadingEvent is one state transition of a UserBook.
type ReadingEvent struct {
	ID         uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	UserBookID uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_book_id"`
	EventType  ReadingEventType `gorm:"size:32;not null" json:"event_type"`
	OccurredAt time.Time        `gorm:"not null;index" json:"occurred_at"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func (ReadingEvent) TableName() string {
	return "reading_events"
}

func (e *ReadingEvent) BeforeCreate(tx *gorm.DB) error {
	return assignID(&e.ID)
}
