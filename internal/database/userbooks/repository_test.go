package userbooks

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/database/readingevents"
	"github.com/mrlokans/shelf/internal/entities"
	"github.com/mrlokans/shelf/internal/optional"
	"github.com/mrlokans/shelf/internal/repoerr"
)

type fixture struct {
	repo  *Repository
	books *books.Repository
	db    *gorm.DB
	user  *entities.User
}

func setupTestDB(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "userbooks.db")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&entities.User{},
		&entities.Author{},
		&entities.Tag{},
		&entities.Book{},
		&entities.BookAuthor{},
		&entities.BookTag{},
		&entities.UserBook{},
		&entities.ReadingEvent{},
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	user := &entities.User{Username: "reader"}
	require.NoError(t, db.Create(user).Error)

	bookRepo := books.NewRepository(db, books.MergeAppend)
	repo := NewRepository(db, bookRepo, func(tx *gorm.DB) EventRecorder {
		return readingevents.NewRepository(tx)
	})
	return &fixture{repo: repo, books: bookRepo, db: db, user: user}
}

func (f *fixture) book(t *testing.T, title string) *entities.Book {
	t.Helper()
	b, err := f.books.CreateBook(context.Background(), books.CreateBookRequest{
		Title:   title,
		Authors: []books.NameRequest{{Name: "Jane Austen"}},
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) track(t *testing.T, title string, req CreateUserBookRequest) *entities.UserBook {
	t.Helper()
	ub, err := f.repo.CreateUserBook(context.Background(), f.book(t, title).ID, f.user.ID, req)
	require.NoError(t, err)
	return ub
}

func ptr[T any](v T) *T {
	return &v
}

func titles(ubs []entities.UserBook) []string {
	out := make([]string, 0, len(ubs))
	for _, ub := range ubs {
		out = append(out, ub.Book.Title)
	}
	return out
}

func TestCreateUserBook(t *testing.T) {
	f := setupTestDB(t)

	ub := f.track(t, "Emma", CreateUserBookRequest{
		ToRead:        true,
		PercentRead:   ptr(10),
		PersonalNotes: ptr("borrowed"),
	})

	assert.NotEqual(t, uuid.Nil, ub.ID)
	assert.True(t, ub.ToRead)
	assert.False(t, ub.Owned)
	assert.Equal(t, 10, *ub.PercentRead)
	assert.Equal(t, "borrowed", *ub.PersonalNotes)
	assert.Nil(t, ub.LastReadingEvent)
	assert.Equal(t, "Emma", ub.Book.Title)
	require.Len(t, ub.Book.Authors, 1)
	assert.Equal(t, "Jane Austen", ub.Book.Authors[0].Name)
}

func TestCreateUserBook_DuplicatePair(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	b := f.book(t, "Emma")

	_, err := f.repo.CreateUserBook(ctx, b.ID, f.user.ID, CreateUserBookRequest{})
	require.NoError(t, err)

	_, err = f.repo.CreateUserBook(ctx, b.ID, f.user.ID, CreateUserBookRequest{Owned: true})
	assert.ErrorIs(t, err, repoerr.ErrConflict)
}

func TestCreateUserBook_UnknownReferences(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	b := f.book(t, "Emma")

	_, err := f.repo.CreateUserBook(ctx, uuid.New(), f.user.ID, CreateUserBookRequest{})
	assert.ErrorIs(t, err, repoerr.ErrNotFound)

	_, err = f.repo.CreateUserBook(ctx, b.ID, uuid.New(), CreateUserBookRequest{})
	assert.ErrorIs(t, err, repoerr.ErrNotFound)
}

func TestCreateUserBook_PercentOutOfRange(t *testing.T) {
	f := setupTestDB(t)
	b := f.book(t, "Emma")

	_, err := f.repo.CreateUserBook(context.Background(), b.ID, f.user.ID, CreateUserBookRequest{PercentRead: ptr(101)})

	assert.ErrorIs(t, err, repoerr.ErrValidation)
}

func TestUpdateUserBook_PatchKeepsAbsentFields(t *testing.T) {
	f := setupTestDB(t)
	ub := f.track(t, "Emma", CreateUserBookRequest{
		Owned:         true,
		ToRead:        true,
		PercentRead:   ptr(30),
		PersonalNotes: ptr("first pass"),
	})

	updated, err := f.repo.UpdateUserBook(context.Background(), ub.ID, UpdateUserBookRequest{
		PercentRead: optional.Of(55),
	})
	require.NoError(t, err)

	assert.Equal(t, 55, *updated.PercentRead)
	assert.True(t, updated.Owned)
	assert.True(t, updated.ToRead)
	assert.Equal(t, "first pass", *updated.PersonalNotes)
}

func TestUpdateUserBook_FalsyValuesApply(t *testing.T) {
	f := setupTestDB(t)
	ub := f.track(t, "Emma", CreateUserBookRequest{Owned: true, ToRead: true, PercentRead: ptr(30)})

	updated, err := f.repo.UpdateUserBook(context.Background(), ub.ID, UpdateUserBookRequest{
		Owned:       optional.Of(false),
		ToRead:      optional.Of(false),
		PercentRead: optional.Of(0),
	})
	require.NoError(t, err)

	assert.False(t, updated.Owned)
	assert.False(t, updated.ToRead)
	assert.Equal(t, 0, *updated.PercentRead)
}

func TestUpdateUserBook_BlankNotesIgnored(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{PersonalNotes: ptr("keep me")})

	updated, err := f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{PersonalNotes: optional.Of("   ")})
	require.NoError(t, err)
	assert.Equal(t, "keep me", *updated.PersonalNotes)

	updated, err = f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{PersonalNotes: optional.Of("reread chapter 3")})
	require.NoError(t, err)
	assert.Equal(t, "reread chapter 3", *updated.PersonalNotes)
}

func TestUpdateUserBook_NestedBookIsReplaced(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	b, err := f.books.CreateBook(ctx, books.CreateBookRequest{
		Title: "Emma",
		BookFields: books.BookFields{
			Publisher: optional.Of("John Murray"),
			PageCount: optional.Of(474),
		},
	})
	require.NoError(t, err)
	ub, err := f.repo.CreateUserBook(ctx, b.ID, f.user.ID, CreateUserBookRequest{PercentRead: ptr(20)})
	require.NoError(t, err)

	updated, err := f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{
		Book: optional.Of(books.UpdateBookRequest{
			BookFields: books.BookFields{PageCount: optional.Of(500)},
		}),
	})
	require.NoError(t, err)

	// the book side follows replace semantics: absent publisher is cleared
	assert.Equal(t, "Emma", updated.Book.Title)
	require.NotNil(t, updated.Book.PageCount)
	assert.Equal(t, 500, *updated.Book.PageCount)
	assert.Nil(t, updated.Book.Publisher)
	// while the tracking record itself is patched
	assert.Equal(t, 20, *updated.PercentRead)
}

func TestUpdateUserBook_RecordsEvent(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{})

	updated, err := f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{
		LastReadingEvent: optional.Of(entities.ReadingEventCurrentlyReading),
	})
	require.NoError(t, err)
	require.NotNil(t, updated.LastReadingEvent)
	assert.Equal(t, entities.ReadingEventCurrentlyReading, *updated.LastReadingEvent)
	require.NotNil(t, updated.LastReadingEventDate)

	var events []entities.ReadingEvent
	require.NoError(t, f.db.Where("user_book_id = ?", ub.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.True(t, events[0].OccurredAt.Equal(*updated.LastReadingEventDate))
}

func TestUpdateUserBook_DoesNotWriteLastEventCache(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{})

	var updates []string
	err := f.db.Callback().Update().After("gorm:update").Register("test:record_user_books", func(tx *gorm.DB) {
		if tx.Statement.Table == "user_books" {
			updates = append(updates, tx.Statement.SQL.String())
		}
	})
	require.NoError(t, err)

	_, err = f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{Owned: optional.Of(true)})
	require.NoError(t, err)

	require.NotEmpty(t, updates)
	for _, sql := range updates {
		assert.Contains(t, sql, "owned")
		assert.NotContains(t, sql, "last_reading_event")
		assert.NotContains(t, sql, "created_at")
	}
}

func TestUpdateUserBook_KeepsEventRecordedWhileUpdating(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{})

	// Record an event right after UpdateUserBook has read the row, inside its
	// transaction, so the patch is applied to a stale copy.
	var recordErr error
	fired := false
	err := f.db.Callback().Query().After("gorm:query").Register("test:record_event", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "user_books" {
			return
		}
		fired = true
		events := readingevents.NewRepository(tx.Session(&gorm.Session{NewDB: true}))
		_, recordErr = events.RecordEvent(tx.Statement.Context, entities.NewLastEventHandle(ub.ID), entities.ReadingEventFinished)
	})
	require.NoError(t, err)

	updated, err := f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{Owned: optional.Of(true)})
	require.NoError(t, err)
	require.True(t, fired)
	require.NoError(t, recordErr)

	assert.True(t, updated.Owned)
	require.NotNil(t, updated.LastReadingEvent)
	assert.Equal(t, entities.ReadingEventFinished, *updated.LastReadingEvent)
	assert.NotNil(t, updated.LastReadingEventDate)
}

func TestUpdateUserBook_InvalidEventRollsBack(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{PercentRead: ptr(10)})

	_, err := f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{
		PercentRead:      optional.Of(90),
		LastReadingEvent: optional.Of(entities.ReadingEventType("PAUSED")),
	})
	assert.ErrorIs(t, err, repoerr.ErrValidation)

	stored, err := f.repo.FindUserBookByID(ctx, ub.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, *stored.PercentRead)
}

func TestUpdateUserBook_NestedBookFailureRollsBack(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{PercentRead: ptr(10)})
	require.NoError(t, f.db.Delete(&entities.Book{}, "id = ?", ub.BookID).Error)

	_, err := f.repo.UpdateUserBook(ctx, ub.ID, UpdateUserBookRequest{
		PercentRead: optional.Of(90),
		Book:        optional.Of(books.UpdateBookRequest{}),
	})
	assert.ErrorIs(t, err, repoerr.ErrNotFound)

	var stored entities.UserBook
	require.NoError(t, f.db.First(&stored, "id = ?", ub.ID).Error)
	assert.Equal(t, 10, *stored.PercentRead)
}

func TestUpdateUserBook_NotFound(t *testing.T) {
	f := setupTestDB(t)

	_, err := f.repo.UpdateUserBook(context.Background(), uuid.New(), UpdateUserBookRequest{Owned: optional.Of(true)})

	assert.ErrorIs(t, err, repoerr.ErrNotFound)
}

func TestUpdateUserBook_PercentOutOfRange(t *testing.T) {
	f := setupTestDB(t)
	ub := f.track(t, "Emma", CreateUserBookRequest{})

	_, err := f.repo.UpdateUserBook(context.Background(), ub.ID, UpdateUserBookRequest{PercentRead: optional.Of(-1)})

	assert.ErrorIs(t, err, repoerr.ErrValidation)
}

func TestFindAllForUser_OrderedByLastEvent(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	never := f.track(t, "Persuasion", CreateUserBookRequest{})
	older := f.track(t, "Emma", CreateUserBookRequest{})
	newer := f.track(t, "Mansfield Park", CreateUserBookRequest{})

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, f.db.Model(&entities.UserBook{}).Where("id = ?", older.ID).
		UpdateColumns(entities.NewLastEventHandle(older.ID).Set(entities.ReadingEventFinished, base)).Error)
	require.NoError(t, f.db.Model(&entities.UserBook{}).Where("id = ?", newer.ID).
		UpdateColumns(entities.NewLastEventHandle(newer.ID).Set(entities.ReadingEventCurrentlyReading, base.Add(48*time.Hour))).Error)

	other := &entities.User{Username: "someone-else"}
	require.NoError(t, f.db.Create(other).Error)
	_, err := f.repo.CreateUserBook(ctx, f.book(t, "Sanditon").ID, other.ID, CreateUserBookRequest{})
	require.NoError(t, err)

	found, err := f.repo.FindAllForUser(ctx, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{"Mansfield Park", "Emma", "Persuasion"}, titles(found))
	assert.Equal(t, never.ID, found[2].ID)
	require.Len(t, found[0].Book.Authors, 1)
}

func TestFindByCriteria(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()

	reading := f.track(t, "Emma", CreateUserBookRequest{})
	_, err := f.repo.UpdateUserBook(ctx, reading.ID, UpdateUserBookRequest{
		LastReadingEvent: optional.Of(entities.ReadingEventCurrentlyReading),
	})
	require.NoError(t, err)

	queued := f.track(t, "Persuasion", CreateUserBookRequest{ToRead: true})
	finished := f.track(t, "Mansfield Park", CreateUserBookRequest{ToRead: true})
	_, err = f.repo.UpdateUserBook(ctx, finished.ID, UpdateUserBookRequest{
		LastReadingEvent: optional.Of(entities.ReadingEventFinished),
	})
	require.NoError(t, err)

	tests := []struct {
		name     string
		criteria Criteria
		want     []uuid.UUID
	}{
		{
			name:     "by last event",
			criteria: Criteria{LastEventType: ptr(entities.ReadingEventCurrentlyReading)},
			want:     []uuid.UUID{reading.ID},
		},
		{
			name:     "by to read",
			criteria: Criteria{ToRead: ptr(true)},
			want:     []uuid.UUID{finished.ID, queued.ID},
		},
		{
			name:     "both",
			criteria: Criteria{LastEventType: ptr(entities.ReadingEventFinished), ToRead: ptr(true)},
			want:     []uuid.UUID{finished.ID},
		},
		{
			name:     "no match",
			criteria: Criteria{LastEventType: ptr(entities.ReadingEventDropped)},
			want:     []uuid.UUID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			found, err := f.repo.FindByCriteria(ctx, f.user.ID, tt.criteria)
			require.NoError(t, err)

			ids := make([]uuid.UUID, 0, len(found))
			for _, ub := range found {
				ids = append(ids, ub.ID)
			}
			assert.ElementsMatch(t, tt.want, ids)
		})
	}

	all, err := f.repo.FindByCriteria(ctx, f.user.ID, Criteria{})
	require.NoError(t, err)
	viaUser, err := f.repo.FindAllForUser(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, titles(viaUser), titles(all))
	assert.Len(t, all, 3)
}

func TestFindByUserAndBook(t *testing.T) {
	f := setupTestDB(t)
	ctx := context.Background()
	ub := f.track(t, "Emma", CreateUserBookRequest{})

	found, err := f.repo.FindByUserAndBook(ctx, f.user.ID, ub.BookID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, ub.ID, found.ID)

	missing, err := f.repo.FindByUserAndBook(ctx, f.user.ID, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
