package tasks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client runs the shelf background jobs on backlite. Jobs live in their own
// SQLite file so the catalog can sit on postgres.
type Client struct {
	queue  *backlite.Client
	db     *sql.DB
	config Config

	mu      sync.Mutex
	queues  int
	running bool
}

// NewClient opens (or creates) the job database at dbPath and installs the
// backlite schema.
func NewClient(dbPath string, cfg Config) (*Client, error) {
	db, err := openJobDB(dbPath, cfg.Workers)
	if err != nil {
		return nil, err
	}

	queue, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          jobLogger{},
	})
	if err == nil {
		err = queue.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("set up job queue: %w", err)
	}

	return &Client{queue: queue, db: db, config: cfg}, nil
}

func openJobDB(path string, workers int) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create job database dir: %w", err)
		}
	}

	// WAL lets the HTTP handlers enqueue while workers hold read transactions
	db, err := sql.Open("sqlite3", path+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open job database: %w", err)
	}
	db.SetMaxOpenConns(workers + 5)
	db.SetMaxIdleConns(workers + 2)
	db.SetConnMaxLifetime(time.Hour)
	return db, nil
}

// Register adds queues. Call it before Start.
func (c *Client) Register(queues ...backlite.Queue) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, q := range queues {
		c.queue.Register(q)
	}
	c.queues += len(queues)
}

// Start launches the workers. Repeated calls are no-ops.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	c.running = true
	queues := c.queues
	c.mu.Unlock()

	log.Printf("Job queue started: %d workers, %d queues", c.config.Workers, queues)
	c.queue.Start(ctx)
}

// Stop drains the workers. It reports false when ctx expired before every
// running job finished.
func (c *Client) Stop(ctx context.Context) bool {
	c.mu.Lock()
	running := c.running
	c.running = false
	c.mu.Unlock()
	if !running {
		return true
	}

	drained := c.queue.Stop(ctx)
	if drained {
		log.Println("Job queue stopped")
	} else {
		log.Println("Job queue stopped before all running jobs finished")
	}
	return drained
}

// Close releases the job database. Call it after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

// Add starts an operation to enqueue one or more tasks.
func (c *Client) Add(tasks ...backlite.Task) *backlite.TaskAddOp {
	return c.queue.Add(tasks...)
}

// EnqueueReconcile queues a last-event reconciliation and returns its task id.
func (c *Client) EnqueueReconcile(trigger string) (string, error) {
	return c.enqueueOne(ReconcileLastEventsTask{Trigger: trigger})
}

// EnqueueCoverFetch queues a cover download for a book and returns its task id.
func (c *Client) EnqueueCoverFetch(bookID uuid.UUID, url string) (string, error) {
	return c.enqueueOne(FetchCoverTask{BookID: bookID, URL: url})
}

func (c *Client) enqueueOne(task backlite.Task) (string, error) {
	ids, err := c.queue.Add(task).Save()
	if err != nil {
		return "", fmt.Errorf("enqueue %s: %w", task.Config().Name, err)
	}
	if len(ids) == 0 {
		return "", errors.New("enqueue " + task.Config().Name + ": no task id returned")
	}
	return ids[0], nil
}

// Status returns the status of a task by ID.
func (c *Client) Status(ctx context.Context, taskID string) (backlite.TaskStatus, error) {
	return c.queue.Status(ctx, taskID)
}

// jobLogger routes backlite logs to the standard logger.
type jobLogger struct{}

func (jobLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (jobLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
