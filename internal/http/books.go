package http

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/tasks"
)

type BooksController struct {
	store      BookStore
	covers     CoverStore
	taskClient *tasks.Client
}

func NewBooksController(store BookStore, covers CoverStore, taskClient *tasks.Client) *BooksController {
	return &BooksController{store: store, covers: covers, taskClient: taskClient}
}

// ListBooks returns every book, or those whose title contains q.
// GET /api/books?q=
func (bc *BooksController) ListBooks(c *gin.Context) {
	found, err := bc.store.FindBooks(c.Request.Context(), c.Query("q"))
	if err != nil {
		respondRepoError(c, err, "list books")
		return
	}
	c.JSON(http.StatusOK, found)
}

// CreateBook creates a book, resolving authors and tags by name.
// POST /api/books
func (bc *BooksController) CreateBook(c *gin.Context) {
	var req books.CreateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book, err := bc.store.CreateBook(c.Request.Context(), req)
	if err != nil {
		respondRepoError(c, err, "create book")
		return
	}
	respondCreated(c, book)
}

// GetBook returns one book with its authors and tags.
// GET /api/books/:id
func (bc *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := bc.store.FindBookByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err, "get book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// UpdateBook replaces the book's scalar fields and merges authors and tags.
// PUT /api/books/:id
func (bc *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req books.UpdateBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	book, err := bc.store.UpdateBook(c.Request.Context(), id, req)
	if err != nil {
		respondRepoError(c, err, "update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// SetCover stores a cover from a multipart "file" upload or a JSON {"url"}.
// Remote covers are downloaded in the background when the task queue runs.
// POST /api/books/:id/cover
func (bc *BooksController) SetCover(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := bc.store.FindBookByID(ctx, id); err != nil {
		respondRepoError(c, err, "find book for cover")
		return
	}

	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			respondBadRequest(c, "cannot read uploaded file")
			return
		}
		defer f.Close()

		name, err := bc.covers.SaveUpload(ctx, id, filepath.Ext(file.Filename), f)
		if err != nil {
			respondRepoError(c, err, "save cover")
			return
		}
		c.JSON(http.StatusOK, gin.H{"image": name})
		return
	}

	var req struct {
		URL string `json:"url" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "either a file upload or a url is required")
		return
	}

	if bc.taskClient != nil {
		taskID, err := bc.taskClient.EnqueueCoverFetch(id, req.URL)
		if err != nil {
			respondInternalError(c, err, "enqueue cover download")
			return
		}
		respondAccepted(c, "cover download queued", gin.H{"task_id": taskID})
		return
	}

	name, err := bc.covers.FetchRemote(ctx, id, req.URL)
	if err != nil {
		respondRepoError(c, err, "fetch cover")
		return
	}
	c.JSON(http.StatusOK, gin.H{"image": name})
}

// GetCover serves a stored cover file.
// GET /covers/:name
func (bc *BooksController) GetCover(c *gin.Context) {
	path, err := bc.covers.Path(c.Param("name"))
	if err != nil {
		respondRepoError(c, err, "get cover")
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.File(path)
}
