package tasks

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mikestefanello/backlite"
)

// CoverFetcher downloads a remote cover and sets it on the book.
type CoverFetcher interface {
	FetchRemote(ctx context.Context, bookID uuid.UUID, url string) (string, error)
}

// FetchCoverTask downloads a book cover in the background.
type FetchCoverTask struct {
	BookID uuid.UUID `json:"book_id"`
	URL    string    `json:"url"`
}

// Config returns the queue configuration for cover downloads.
func (t FetchCoverTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "fetch_cover",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// FetchCoverProcessor creates a processor function for FetchCoverTask.
func FetchCoverProcessor(fetcher CoverFetcher) backlite.QueueProcessor[FetchCoverTask] {
	return func(ctx context.Context, task FetchCoverTask) error {
		if fetcher == nil {
			return errors.New("cover store not configured")
		}

		name, err := fetcher.FetchRemote(ctx, task.BookID, task.URL)
		if err != nil {
			return fmt.Errorf("fetch cover for book %s: %w", task.BookID, err)
		}

		log.Printf("[TASK] Stored cover %s for book %s", name, task.BookID)
		return nil
	}
}

// NewFetchCoverQueue creates a backlite queue for cover downloads.
func NewFetchCoverQueue(fetcher CoverFetcher) backlite.Queue {
	return backlite.NewQueue(FetchCoverProcessor(fetcher))
}
