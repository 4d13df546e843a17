package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/shelf/internal/database/books"
	"github.com/mrlokans/shelf/internal/metadata"
)

type MetadataController struct {
	lookup MetadataLookup
}

func NewMetadataController(lookup MetadataLookup) *MetadataController {
	return &MetadataController{lookup: lookup}
}

// MetadataResponse carries the lookup result and a prefilled create request.
type MetadataResponse struct {
	Metadata    *metadata.BookMetadata   `json:"metadata"`
	BookRequest books.CreateBookRequest `json:"book_request"`
}

// Lookup searches OpenLibrary by ISBN, or by title and optional author.
// GET /api/metadata?isbn= | ?title=&author=
func (mc *MetadataController) Lookup(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 30*time.Second)
	defer cancel()

	var (
		md  *metadata.BookMetadata
		err error
	)
	switch {
	case c.Query("isbn") != "":
		md, err = mc.lookup.SearchByISBN(ctx, c.Query("isbn"))
	case c.Query("title") != "":
		md, err = mc.lookup.SearchByTitle(ctx, c.Query("title"), c.Query("author"))
	default:
		respondBadRequest(c, "isbn or title is required")
		return
	}
	if err != nil {
		respondRepoError(c, err, "metadata lookup")
		return
	}

	c.JSON(http.StatusOK, MetadataResponse{
		Metadata:    md,
		BookRequest: md.ToCreateRequest(),
	})
}
