package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestNewDatabase_MigratesAllTables(t *testing.T) {
	db := setupTestDB(t)

	for _, model := range Models() {
		assert.True(t, db.DB.Migrator().HasTable(model), "missing table for %T", model)
	}
	assert.True(t, db.DB.Migrator().HasIndex(&entities.UserBook{}, "idx_user_book"))
}

func TestNewDatabase_UnsupportedDriver(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: "oracle"})
	assert.ErrorContains(t, err, "unsupported database driver")
}

func TestNewDatabase_PostgresRequiresDSN(t *testing.T) {
	_, err := NewDatabase(config.Database{Driver: config.DriverPostgres})
	assert.ErrorContains(t, err, "DATABASE_DSN")
}

func TestDatabase_Ping(t *testing.T) {
	db := setupTestDB(t)
	assert.NoError(t, db.Ping(context.Background()))
}

func TestDatabase_TransactionRollsBack(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	err := db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(&entities.User{Username: "ghost"}).Error; err != nil {
			return err
		}
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	var count int64
	require.NoError(t, db.DB.Model(&entities.User{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestDatabase_UniqueUserBookPair(t *testing.T) {
	db := setupTestDB(t)

	user := entities.User{Username: "reader"}
	require.NoError(t, db.DB.Create(&user).Error)
	book := entities.Book{Title: "Dune"}
	require.NoError(t, db.DB.Create(&book).Error)

	require.NoError(t, db.DB.Omit("User", "Book").Create(&entities.UserBook{UserID: user.ID, BookID: book.ID}).Error)
	err := db.DB.Omit("User", "Book").Create(&entities.UserBook{UserID: user.ID, BookID: book.ID}).Error
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}
