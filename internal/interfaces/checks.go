package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/shelf/internal/covers"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/database/readingevents"
	"github.com/mrlokans/shelf/internal/database/sync"
	"github.com/mrlokans/shelf/internal/database/userbooks"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/http"
	"github.com/mrlokans/shelf/internal/metadata"
	"github.com/mrlokans/shelf/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)

// Catalog
var _ http.BookStore = (*books.Repository)(nil)
var _ http.AuthorStore = (*books.Repository)(nil)
var _ http.TagStore = (*books.Repository)(nil)

// Tracking
var _ http.UserBookStore = (*userbooks.Repository)(nil)
var _ http.EventStore = (*readingevents.Repository)(nil)
var _ http.UserProvisioner = (*users.Repository)(nil)

// EventRecorder implementations
var _ userbooks.EventRecorder = (*readingevents.Repository)(nil)

// =============================================================================
// Covers
// =============================================================================

var _ covers.ImageSetter = (*books.Repository)(nil)
var _ http.CoverStore = (*covers.Store)(nil)
var _ tasks.CoverFetcher = (*covers.Store)(nil)

// =============================================================================
// External Services
// =============================================================================

var _ http.MetadataLookup = (*metadata.OpenLibraryClient)(nil)

// =============================================================================
// Reconciliation
// =============================================================================

var _ readingevents.ProgressReporter = (*sync.Repository)(nil)
var _ http.ReconcileStatus = (*sync.Repository)(nil)
var _ http.Reconciler = (*readingevents.Repository)(nil)
var _ tasks.LastEventReconciler = (*readingevents.Repository)(nil)
