package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/shelf/internal/config"
	"github.com/mrlokans/shelf/internal/covers"
	"github.com/mrlokans/shelf/internal/database"
	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/database/readingevents"
	syncprogress "github.com/mrlokans/shelf/internal/database/sync"
	"github.com/mrlokans/shelf/internal/database/userbooks"
	"github.com/mrlokans/shelf/internal/database/users"
	http_controllers "github.com/mrlokans/shelf/internal/http"
	"github.com/mrlokans/shelf/internal/metadata"
	"github.com/mrlokans/shelf/internal/scheduler"
	"github.com/mrlokans/shelf/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Repositories bundles the data-access layer built on one database handle.
type Repositories struct {
	Books     *books.Repository
	UserBooks *userbooks.Repository
	Events    *readingevents.Repository
	Users     *users.Repository
	Progress  *syncprogress.Repository
}

// NewRepositories wires every repository to db using the configured relation
// merge policy.
func NewRepositories(db *gorm.DB, catalog config.Catalog) (*Repositories, error) {
	policy, err := books.ParseMergePolicy(string(catalog.MergePolicy))
	if err != nil {
		return nil, err
	}

	booksRepo := books.NewRepository(db, policy)
	return &Repositories{
		Books: booksRepo,
		UserBooks: userbooks.NewRepository(db, booksRepo, func(tx *gorm.DB) userbooks.EventRecorder {
			return readingevents.NewRepository(tx)
		}),
		Events:   readingevents.NewRepository(db),
		Users:    users.NewRepository(db),
		Progress: syncprogress.NewRepository(db),
	}, nil
}

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// SIGKILL cannot be caught, so only INT and TERM are handled
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work before the listener goes away
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Shelf v%s", version)

	db, err := database.NewDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	repos, err := NewRepositories(db.DB, cfg.Catalog)
	if err != nil {
		log.Fatalf("Invalid catalog configuration: %v", err)
	}
	log.Printf("Relation merge policy: %s", repos.Books.Policy())

	coverStore, err := covers.NewStore(cfg.Covers.Dir, repos.Books)
	if err != nil {
		log.Printf("WARNING: Failed to initialize cover store, cover endpoints disabled: %v", err)
		coverStore = nil
	} else {
		log.Printf("Cover store initialized at %s", coverStore.Dir())
	}

	var lookup http_controllers.MetadataLookup
	if cfg.Metadata.Enabled {
		lookup = metadata.NewOpenLibraryClient(cfg.Metadata.BaseURL)
	} else {
		log.Printf("Metadata lookup disabled")
	}

	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Tasks.DatabasePath, tasks.FromAppConfig(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewReconcileLastEventsQueue(repos.Events, repos.Progress))
		if coverStore != nil {
			taskClient.Register(tasks.NewFetchCoverQueue(coverStore))
		}

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	var reconcileScheduler *scheduler.ReconcileScheduler
	if cfg.Reconcile.Enabled {
		reconcileScheduler = scheduler.NewReconcileScheduler(cfg.Reconcile.Schedule, reconcileRunFunc(taskClient, repos))
		if err := reconcileScheduler.Start(context.Background()); err != nil {
			log.Fatalf("Failed to start reconcile scheduler: %v", err)
		}
	}

	routerCfg := http_controllers.RouterConfig{
		Database:         db,
		Books:            repos.Books,
		Authors:          repos.Books,
		Tags:             repos.Books,
		UserBooks:        repos.UserBooks,
		Events:           repos.Events,
		Users:            repos.Users,
		DefaultUsername:  cfg.Global.DefaultUsername,
		Metadata:         lookup,
		Reconciler:       repos.Events,
		ReconcileStatus:  repos.Progress,
		ProgressReporter: repos.Progress,
		TaskClient:       taskClient,
		Version:          version,
	}
	if coverStore != nil {
		routerCfg.Covers = coverStore
		routerCfg.HealthChecks = map[string]http_controllers.HealthCheck{"covers": coverStore.Check}
	}

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if reconcileScheduler != nil {
			reconcileScheduler.Stop()
		}
		if taskClient != nil && taskCtxCancel != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}

// reconcileRunFunc enqueues a reconciliation when the task queue is running
// and reconciles inline otherwise.
func reconcileRunFunc(client *tasks.Client, repos *Repositories) scheduler.RunFunc {
	return func(ctx context.Context) error {
		if client != nil {
			_, err := client.EnqueueReconcile("schedule")
			return err
		}
		_, err := repos.Events.ReconcileLastEvents(ctx, repos.Progress)
		return err
	}
}
