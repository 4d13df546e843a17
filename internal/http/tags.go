package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type TagsController struct {
	store TagStore
}

func NewTagsController(store TagStore) *TagsController {
	return &TagsController{store: store}
}

// ListTags returns all tags, or those whose name contains name.
// GET /api/tags?name=
func (tc *TagsController) ListTags(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		found any
		err   error
	)
	if name := c.Query("name"); name != "" {
		found, err = tc.store.FindTagsByName(ctx, name)
	} else {
		found, err = tc.store.FindAllTags(ctx)
	}
	if err != nil {
		respondRepoError(c, err, "list tags")
		return
	}
	c.JSON(http.StatusOK, found)
}

// CreateTag creates a tag.
// POST /api/tags
func (tc *TagsController) CreateTag(c *gin.Context) {
	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	tag, err := tc.store.CreateTag(c.Request.Context(), req.Name.OrElse(""))
	if err != nil {
		respondRepoError(c, err, "create tag")
		return
	}
	respondCreated(c, tag)
}

// GetTag returns one tag.
// GET /api/tags/:id
func (tc *TagsController) GetTag(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tag, err := tc.store.FindTagByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err, "get tag")
		return
	}
	c.JSON(http.StatusOK, tag)
}

// UpdateTag renames a tag. A blank name leaves it unchanged.
// PUT /api/tags/:id
func (tc *TagsController) UpdateTag(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req nameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	tag, err := tc.store.UpdateTag(c.Request.Context(), id, req.Name)
	if err != nil {
		respondRepoError(c, err, "update tag")
		return
	}
	c.JSON(http.StatusOK, tag)
}

// GetTagBooks lists the books linked to a tag.
// GET /api/tags/:id/books
func (tc *TagsController) GetTagBooks(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if _, err := tc.store.FindTagByID(ctx, id); err != nil {
		respondRepoError(c, err, "get tag")
		return
	}
	found, err := tc.store.FindBooksByTag(ctx, id)
	if err != nil {
		respondRepoError(c, err, "list tag books")
		return
	}
	c.JSON(http.StatusOK, found)
}
