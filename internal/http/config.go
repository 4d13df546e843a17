package http

import (
	"github.com/mrlokans/shelf/internal/database/readingevents"
	"github.com/mrlokans/shelf/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database  Pinger
	Books     BookStore
	Authors   AuthorStore
	Tags      TagStore
	UserBooks UserBookStore
	Events    EventStore

	// Single-user mode: every request acts as this user
	Users           UserProvisioner
	DefaultUsername string

	// Cover storage (optional)
	Covers CoverStore

	// Metadata lookup (optional)
	Metadata MetadataLookup

	// Last-event reconciliation
	Reconciler       Reconciler
	ReconcileStatus  ReconcileStatus
	ProgressReporter readingevents.ProgressReporter

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Extra named probes reported by /health
	HealthChecks map[string]HealthCheck

	// Application info
	Version string
}
