package http

import (
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	health := NewHealthController(cfg.Database, cfg.Version)
	for name, check := range cfg.HealthChecks {
		health.AddCheck(name, check)
	}
	router.GET("/health", health.Status)
	router.GET("/ping", health.Ping)

	api := router.Group("/api")
	api.Use(DefaultUserMiddleware(cfg.Users, cfg.DefaultUsername))

	booksController := NewBooksController(cfg.Books, cfg.Covers, cfg.TaskClient)
	api.GET("/books", booksController.ListBooks)
	api.POST("/books", booksController.CreateBook)
	api.GET("/books/:id", booksController.GetBook)
	api.PUT("/books/:id", booksController.UpdateBook)
	if cfg.Covers != nil {
		api.POST("/books/:id/cover", booksController.SetCover)
		router.GET("/covers/:name", booksController.GetCover)
	}

	authorsController := NewAuthorsController(cfg.Authors)
	api.GET("/authors", authorsController.ListAuthors)
	api.POST("/authors", authorsController.CreateAuthor)
	api.GET("/authors/:id", authorsController.GetAuthor)
	api.PUT("/authors/:id", authorsController.UpdateAuthor)
	api.GET("/authors/:id/books", authorsController.GetAuthorBooks)

	tagsController := NewTagsController(cfg.Tags)
	api.GET("/tags", tagsController.ListTags)
	api.POST("/tags", tagsController.CreateTag)
	api.GET("/tags/:id", tagsController.GetTag)
	api.PUT("/tags/:id", tagsController.UpdateTag)
	api.GET("/tags/:id/books", tagsController.GetTagBooks)

	userBooksController := NewUserBooksController(cfg.UserBooks, cfg.Events)
	api.GET("/userbooks", userBooksController.ListUserBooks)
	api.POST("/userbooks", userBooksController.CreateUserBook)
	api.GET("/userbooks/:id", userBooksController.GetUserBook)
	api.PUT("/userbooks/:id", userBooksController.UpdateUserBook)
	api.GET("/userbooks/:id/events", userBooksController.ListEvents)

	if cfg.Metadata != nil {
		metadataController := NewMetadataController(cfg.Metadata)
		api.GET("/metadata", metadataController.Lookup)
	}

	if cfg.Reconciler != nil {
		tasksController := NewTasksController(cfg.TaskClient, cfg.Reconciler, cfg.ReconcileStatus, cfg.ProgressReporter)
		api.POST("/tasks/reconcile", tasksController.RunReconcile)
		api.GET("/tasks/reconcile", tasksController.GetReconcileStatus)
		api.GET("/tasks/:id", tasksController.GetTaskStatus)
	}

	return router
}

// DefaultUserMiddleware injects the single-user mode account into every
// request. The account is created on first use.
func DefaultUserMiddleware(users UserProvisioner, username string) gin.HandlerFunc {
	var (
		mu     sync.Mutex
		userID uuid.UUID
	)
	return func(c *gin.Context) {
		mu.Lock()
		if userID == uuid.Nil {
			user, err := users.GetOrCreateUser(c.Request.Context(), username)
			if err != nil {
				mu.Unlock()
				respondInternalError(c, err, "resolve default user")
				c.Abort()
				return
			}
			userID = user.ID
		}
		id := userID
		mu.Unlock()

		c.Set(ContextKeyUserID, id)
		c.Next()
	}
}
