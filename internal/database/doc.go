// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, pool tuning, migrations
//	├── store/           # Generic entity store (create, get, list, pattern search)
//	├── books/           # Books, authors, tags, name resolution, relation merge
//	├── userbooks/       # Per-user tracking records
//	├── readingevents/   # Reading events and the last-event cache
//	├── sync/            # Progress of long-running maintenance jobs
//	└── users/           # User lookup
//
// # Using Sub-packages
//
//	db, err := database.NewDatabase(cfg.Database)
//
//	booksRepo := books.NewRepository(db.DB, books.MergeAppend)
//	userBooksRepo := userbooks.NewRepository(db.DB, booksRepo, func(tx *gorm.DB) userbooks.EventRecorder {
//	    return readingevents.NewRepository(tx)
//	})
//
//	book, err := booksRepo.CreateBook(ctx, books.CreateBookRequest{Title: "Dune"})
//
// # Transactions
//
// Every create and update runs inside one transaction. Repositories expose
// WithTx so that a caller already inside a transaction can reuse it; gorm
// turns the nested Transaction calls into savepoints.
//
// # Engines
//
// SQLite is the default. Postgres is selected with DATABASE_DRIVER=postgres
// and DATABASE_DSN. Timestamps are stored in UTC on both engines.
package database
