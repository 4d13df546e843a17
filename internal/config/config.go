package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DatabaseDriver string

const (
	DriverSQLite   DatabaseDriver = "sqlite"
	DriverPostgres DatabaseDriver = "postgres"
)

type MergePolicy string

const (
	MergePolicyAppend MergePolicy = "append" // keep every submitted link, duplicates included
	MergePolicyUnique MergePolicy = "unique" // one link per author/tag id
)

type (
	Config struct {
		HTTP
		Global
		Database
		Catalog
		Covers
		Metadata
		Tasks
		Reconcile
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
		DefaultUsername          string // user injected into every request in single-user mode
	}
	Database struct {
		Driver          DatabaseDriver
		Path            string // sqlite file
		DSN             string // postgres connection string
		LogSQL          bool
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
	}
	Catalog struct {
		MergePolicy MergePolicy
	}
	Covers struct {
		Dir string
	}
	Metadata struct {
		Enabled bool
		BaseURL string
	}
	Tasks struct {
		Enabled           bool
		DatabasePath      string
		Workers           int
		MaxRetries        int
		TaskTimeout       time.Duration
		ReleaseAfter      time.Duration
		CleanupInterval   time.Duration
		RetentionDuration time.Duration
	}
	Reconcile struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = nightly at 03:30
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8190)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("default_username", "reader")

	v.SetDefault("database_driver", string(DriverSQLite))
	v.SetDefault("database_path", DefaultDatabasePath)
	v.SetDefault("database_dsn", "")
	v.SetDefault("database_log_sql", false)
	v.SetDefault("database_max_open_conns", 25)
	v.SetDefault("database_max_idle_conns", 10)
	v.SetDefault("database_conn_max_lifetime", "5m")

	v.SetDefault("relation_merge_policy", string(MergePolicyAppend))
	v.SetDefault("covers_dir", DefaultCoversDir)

	v.SetDefault("metadata_enabled", true)
	v.SetDefault("metadata_base_url", "https://openlibrary.org")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("tasks_database_path", DefaultTasksDatabasePath)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_max_retries", 3)
	v.SetDefault("task_timeout", "5m")
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")
	v.SetDefault("task_retention_duration", "24h")

	v.SetDefault("reconcile_enabled", false)
	v.SetDefault("reconcile_schedule", "30 3 * * *")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
			DefaultUsername:          v.GetString("DEFAULT_USERNAME"),
		},
		Database: Database{
			Driver:          DatabaseDriver(strings.ToLower(v.GetString("DATABASE_DRIVER"))),
			Path:            v.GetString("DATABASE_PATH"),
			DSN:             v.GetString("DATABASE_DSN"),
			LogSQL:          v.GetBool("DATABASE_LOG_SQL"),
			MaxOpenConns:    v.GetInt("DATABASE_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DATABASE_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DATABASE_CONN_MAX_LIFETIME"),
		},
		Catalog: Catalog{
			MergePolicy: MergePolicy(strings.ToLower(v.GetString("RELATION_MERGE_POLICY"))),
		},
		Covers: Covers{
			Dir: v.GetString("COVERS_DIR"),
		},
		Metadata: Metadata{
			Enabled: v.GetBool("METADATA_ENABLED"),
			BaseURL: v.GetString("METADATA_BASE_URL"),
		},
		Tasks: Tasks{
			Enabled:           v.GetBool("TASKS_ENABLED"),
			DatabasePath:      v.GetString("TASKS_DATABASE_PATH"),
			Workers:           v.GetInt("TASK_WORKERS"),
			MaxRetries:        v.GetInt("TASK_MAX_RETRIES"),
			TaskTimeout:       v.GetDuration("TASK_TIMEOUT"),
			ReleaseAfter:      v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval:   v.GetDuration("TASK_CLEANUP_INTERVAL"),
			RetentionDuration: v.GetDuration("TASK_RETENTION_DURATION"),
		},
		Reconcile: Reconcile{
			Enabled:  v.GetBool("RECONCILE_ENABLED"),
			Schedule: v.GetString("RECONCILE_SCHEDULE"),
		},
	}
}
