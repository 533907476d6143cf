package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/ripplegate/ripplegate/internal/helpers"
	"github.com/ripplegate/ripplegate/internal/models"
	"github.com/ripplegate/ripplegate/internal/store"
)

type EventRequest struct {
	Title       string          `json:"title" binding:"required"`
	Location    string          `json:"location" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Tickets     *int            `json:"tickets" binding:"required"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Date        string          `json:"date" binding:"required"`
	Time        string          `json:"time" binding:"required"`
}

// Accepted forms of the event start time. Browser date pickers send a full
// timestamp, possibly with fractional seconds and a zone suffix.
var eventTimeLayouts = []string{
	time.TimeOnly,
	"15:04",
	"2006-01-02T15:04:05",
}

func parseEventTime(date time.Time, s string) (time.Time, error) {
	s, _, _ = strings.Cut(s, ".")
	s = strings.TrimSuffix(s, "Z")
	var lastErr error
	for _, layout := range eventTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			lastErr = err
			continue
		}
		return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC), nil
	}
	return time.Time{}, lastErr
}

func (h *Handler) ListEvents(c *gin.Context) {
	events, err := h.store.ListEvents(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to retrieve events.")
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, toEventResponse(e))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) CreateEvent(c *gin.Context) {
	userID, ok := helpers.CurrentUserID(c)
	if !ok {
		return
	}

	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}
	if *req.Tickets < 0 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Tickets cannot be negative.")
		return
	}
	if req.Price.IsNegative() {
		helpers.RespondWithError(c, http.StatusBadRequest, "Price cannot be negative.")
		return
	}

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid date format. Use YYYY-MM-DD.")
		return
	}
	startTime, err := parseEventTime(date, req.Time)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid time format.")
		return
	}

	event := models.Event{
		Title:       req.Title,
		Location:    req.Location,
		Description: req.Description,
		Tickets:     *req.Tickets,
		Price:       req.Price,
		Image:       req.Image,
		Date:        date,
		Time:        startTime,
		HostID:      &userID,
	}
	if err := h.store.CreateEvent(c.Request.Context(), &event); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			helpers.RespondWithError(c, http.StatusConflict, "An event already exists at this location.")
			return
		}
		_ = c.Error(err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create event.")
		return
	}

	c.JSON(http.StatusCreated, toEventResponse(event))
}
