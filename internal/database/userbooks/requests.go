package userbooks

import (
	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/optional"
)

type CreateUserBookRequest struct {
	Owned         bool    `json:"owned"`
	ToRead        bool    `json:"to_read"`
	PercentRead   *int    `json:"percent_read"`
	PersonalNotes *string `json:"personal_notes"`
}

// UpdateUserBookRequest is a patch: every absent field leaves the stored value
// alone. Personal notes are applied only when non-blank.
type UpdateUserBookRequest struct {
	Owned            optional.Value[bool]                      `json:"owned"`
	ToRead           optional.Value[bool]                      `json:"to_read"`
	PercentRead      optional.Value[int]                       `json:"percent_read"`
	PersonalNotes    optional.Value[string]                    `json:"personal_notes"`
	Book             optional.Value[books.UpdateBookRequest]   `json:"book"`
	LastReadingEvent optional.Value[entities.ReadingEventType] `json:"last_reading_event"`
}

// Criteria filters a user's tracking records. Nil fields match everything.
type Criteria struct {
	LastEventType *entities.ReadingEventType
	ToRead        *bool
}
