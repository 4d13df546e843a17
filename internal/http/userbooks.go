package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mrlokans/shelf/internal/database/userbooks"
	"github.com/mrlokans/shelf/internal/entities"
)

type UserBooksController struct {
	store  UserBookStore
	events EventStore
}

func NewUserBooksController(store UserBookStore, events EventStore) *UserBooksController {
	return &UserBooksController{store: store, events: events}
}

// createUserBookRequest names the book to track alongside the initial state.
type createUserBookRequest struct {
	BookID uuid.UUID `json:"book_id" binding:"required"`
	userbooks.CreateUserBookRequest
}

// ListUserBooks returns the acting user's records, latest reading activity
// first.
// GET /api/userbooks?lastEventType=&toRead=
func (uc *UserBooksController) ListUserBooks(c *gin.Context) {
	var criteria userbooks.Criteria

	if raw := c.Query("lastEventType"); raw != "" {
		eventType := entities.ReadingEventType(raw)
		if !eventType.Valid() {
			respondBadRequest(c, fmt.Sprintf("invalid lastEventType, expected one of %v", entities.ReadingEventTypes()))
			return
		}
		criteria.LastEventType = &eventType
	}

	toRead, ok := parseQueryBool(c, "toRead")
	if !ok {
		return
	}
	criteria.ToRead = toRead

	found, err := uc.store.FindByCriteria(c.Request.Context(), GetUserID(c), criteria)
	if err != nil {
		respondRepoError(c, err, "list user books")
		return
	}
	c.JSON(http.StatusOK, found)
}

// CreateUserBook starts tracking a book for the acting user.
// POST /api/userbooks
func (uc *UserBooksController) CreateUserBook(c *gin.Context) {
	var req createUserBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "book_id is required")
		return
	}

	ub, err := uc.store.CreateUserBook(c.Request.Context(), req.BookID, GetUserID(c), req.CreateUserBookRequest)
	if err != nil {
		respondRepoError(c, err, "create user book")
		return
	}
	respondCreated(c, ub)
}

// GetUserBook returns one of the acting user's records.
// GET /api/userbooks/:id
func (uc *UserBooksController) GetUserBook(c *gin.Context) {
	ub, ok := uc.ownedUserBook(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ub)
}

// UpdateUserBook patches a record. A nested "book" object replaces the book
// fields and "last_reading_event" records a new reading event.
// PUT /api/userbooks/:id
func (uc *UserBooksController) UpdateUserBook(c *gin.Context) {
	ub, ok := uc.ownedUserBook(c)
	if !ok {
		return
	}

	var req userbooks.UpdateUserBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body: "+err.Error())
		return
	}

	updated, err := uc.store.UpdateUserBook(c.Request.Context(), ub.ID, req)
	if err != nil {
		respondRepoError(c, err, "update user book")
		return
	}
	c.JSON(http.StatusOK, updated)
}

// ListEvents returns the reading history of a record, newest first.
// GET /api/userbooks/:id/events
func (uc *UserBooksController) ListEvents(c *gin.Context) {
	ub, ok := uc.ownedUserBook(c)
	if !ok {
		return
	}

	events, err := uc.events.FindEventsForUserBook(c.Request.Context(), ub.ID)
	if err != nil {
		respondRepoError(c, err, "list reading events")
		return
	}
	c.JSON(http.StatusOK, events)
}

// ownedUserBook loads the record named by :id and hides records of other
// users behind a 404.
func (uc *UserBooksController) ownedUserBook(c *gin.Context) (*entities.UserBook, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}

	ub, err := uc.store.FindUserBookByID(c.Request.Context(), id)
	if err != nil {
		respondRepoError(c, err, "get user book")
		return nil, false
	}
	if ub.UserID != GetUserID(c) {
		respondNotFound(c, "user book")
		return nil, false
	}
	return ub, true
}
