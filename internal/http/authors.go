package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/optional"
)

// nameRequest is the body of author and tag create/update calls.
type nameRequest struct {
	Name optional.Value[string] `json:"name"`
}

type AuthorsController struct {
	store AuthorStore
}

func NewAuthorsController(store AuthorStore) *AuthorsController {
	return &AuthorsController{store: store}
}

// ListAuthors returns all authors, or those whose name contains name.
// GET /api/authors?name=
func (ac *AuthorsController) ListAuthors(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		found any
		err   error
	)
	if name := c.Query("name"); name != "" {
		found, err = ac.store.FindAuthorsByName(ctx, name)
	} else {
		found, err = ac.store.FindAllAuthors(ctx)
	}
	if err != nil {
		respondRepoError(c, err, "list authors")
		return
	}
	c.JSON(http.StatusOK, found)
}

// CreateAuthor creates an author. A name that normalizes to an existing one
// is rejected.
// POST /api/authors
func (ac *AuthorsController) CreateAuthor(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	author, err := ac.store.CreateAuthor(c.Request.Context(), req.Name.OrElse(""))
	if err != nil {
		respondRepoError(c, err, "create author")
		return
	}
	respondCreated(c, author)
}

// GetAuthor returns one author.
// GET /api/authors/:id
func (ac *AuthorsController) GetAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	author, err := ac.store.FindAuthorByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err, "get author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// UpdateAuthor renames an author. A blank name leaves it unchanged.
// PUT /api/authors/:id
func (ac *AuthorsController) UpdateAuthor(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	author, err := ac.store.UpdateAuthor(c.Request.Context(), id, req.Name)
	if err != nil {
		respondRepoError(c, err, "update author")
		return
	}
	c.JSON(http.StatusOK, author)
}

// GetAuthorBooks lists the books linked to an author.
// GET /api/authors/:id/books
func (ac *AuthorsController) GetAuthorBooks(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := ac.store.FindAuthorByID(ctx, id); err != nil {
		respondRepoError(c, err, "get author")
		return
	}
	found, err := ac.store.FindBooksByAuthor(ctx, id)
	if err != nil {
		respondRepoError(c, err, "list author books")
		return
	}
	c.JSON(http.StatusOK, found)
}
