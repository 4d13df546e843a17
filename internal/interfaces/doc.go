// Package interfaces documents the core abstractions used throughout the application.
//
// Interfaces are declared by the package that consumes them. This package
// only holds the compile-time checks tying each one to its implementation.
//
// # Interface Categories
//
// ## Data Access Interfaces
//
//   - BookStore, AuthorStore, TagStore: catalog access (internal/http/stores.go),
//     implemented by books.Repository
//   - UserBookStore: per-user tracking records (internal/http/stores.go),
//     implemented by userbooks.Repository
//   - EventStore: reading history (internal/http/stores.go)
//   - UserProvisioner: single-user mode account (internal/http/stores.go)
//
// ## Collaborator Interfaces
//
//   - EventRecorder: records a reading event and updates the last-event cache
//     through a LastEventHandle (internal/database/userbooks/repository.go).
//     userbooks receives a RecorderFactory so the recorder joins its transaction.
//   - ImageSetter: lets the cover store point a book at a new image without
//     touching any other book field (internal/covers/store.go)
//
// ## Background Work
//
//   - ProgressReporter: tracks reconciliation runs (internal/database/readingevents)
//   - LastEventReconciler, CoverFetcher: task queue processors (internal/tasks)
//
// ## External Services
//
//   - MetadataLookup: book metadata by ISBN or title (internal/http/stores.go),
//     implemented by metadata.OpenLibraryClient
//
// # Adding an Implementation
//
// Add a compile-time check to checks.go next to the related ones:
//
//	var _ http.BookStore = (*myStore)(nil)
package interfaces
