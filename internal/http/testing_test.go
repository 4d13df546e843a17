package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/covers"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/database/readingevents"
	syncprogress "github.com/mrlokans/shelf/internal/database/sync"
	"github.com/mrlokans/shelf/internal/database/userbooks"
	"github.com/mrlokans/shelf/internal/database/users"
	"github.com/mrlokans/shelf/internal/metadata"
)

type testApp struct {
	router *gin.Engine
	db     *database.Database
	books  *books.Repository
	users  *users.Repository
}

type fakeLookup struct {
	md  *metadata.BookMetadata
	err error
}

func (f *fakeLookup) SearchByISBN(ctx context.Context, isbn string) (*metadata.BookMetadata, error) {
	return f.md, f.err
}

func (f *fakeLookup) SearchByTitle(ctx context.Context, title, author string) (*metadata.BookMetadata, error) {
	return f.md, f.err
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	db, err := database.NewSQLite(filepath.Join(dir, "shelf.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	booksRepo := books.NewRepository(db.DB, books.MergeAppend)
	eventsRepo := readingevents.NewRepository(db.DB)
	userBooksRepo := userbooks.NewRepository(db.DB, booksRepo, func(tx *gorm.DB) userbooks.EventRecorder {
		return readingevents.NewRepository(tx)
	})
	usersRepo := users.NewRepository(db.DB)
	progress := syncprogress.NewRepository(db.DB)

	coverStore, err := covers.NewStore(filepath.Join(dir, "covers"), booksRepo)
	require.NoError(t, err)

	router := NewRouter(RouterConfig{
		Database:         db,
		Books:            booksRepo,
		Authors:          booksRepo,
		Tags:             booksRepo,
		UserBooks:        userBooksRepo,
		Events:           eventsRepo,
		Users:            usersRepo,
		DefaultUsername:  "reader",
		Covers:           coverStore,
		Metadata:         &fakeLookup{md: &metadata.BookMetadata{Title: "Dune", Authors: []string{"Frank Herbert"}}},
		Reconciler:       eventsRepo,
		ReconcileStatus:  progress,
		ProgressReporter: progress,
		Version:          "test",
	})

	return &testApp{router: router, db: db, books: booksRepo, users: usersRepo}
}

// do sends a JSON request and returns the recorder.
func (a *testApp) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}

	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}
