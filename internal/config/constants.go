package config

// Default on-disk locations
const (
	// DefaultDatabasePath is the default path for the catalog database
	DefaultDatabasePath = "./shelf.db"

	// DefaultTasksDatabasePath is the default path for the background task queue
	DefaultTasksDatabasePath = "./shelf-tasks.db"

	// DefaultCoversDir is where uploaded and downloaded cover images are written
	DefaultCoversDir = "./covers"
)
