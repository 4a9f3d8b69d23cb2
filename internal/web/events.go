package web

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tyemirov/bookstore/internal/store"
)

// EventStore is the slice of storage the event handlers need.
type EventStore interface {
	CreateEvent(ctx context.Context, event store.Event) (store.Event, error)
	ListEvents(ctx context.Context, page int, take int) ([]store.Event, int64, error)
	FindEventByID(ctx context.Context, eventID uint64) (store.Event, error)
}

// MountEventRoutes registers the storefront event endpoints.
func MountEventRoutes(router gin.IRouter, events EventStore, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	router.POST("/events", handleCreateEvent(events))
	router.GET("/events", handleListEvents(events, logger))
	router.GET("/events/:id", handleGetEvent(events))
}

func handleCreateEvent(events EventStore) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound struct {
			Title       string    `json:"title"`
			Description string    `json:"description"`
			StartDate   time.Time `json:"startDate"`
			EndDate     time.Time `json:"endDate"`
			ImageURL    string    `json:"imageUrl"`
		}
		if err := contextGin.BindJSON(&inbound); err != nil || inbound.Title == "" {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_json"})
			return
		}
		event, createErr := events.CreateEvent(contextGin.Request.Context(), store.Event{
			Title:       inbound.Title,
			Description: inbound.Description,
			StartDate:   inbound.StartDate,
			EndDate:     inbound.EndDate,
			ImageURL:    inbound.ImageURL,
		})
		if createErr != nil {
			if errors.Is(createErr, store.ErrEventWindowInverted) {
				contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "end_date_before_start_date"})
				return
			}
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusCreated, event)
	}
}

func handleListEvents(events EventStore, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		page := positiveIntQuery(contextGin, "page", 1)
		take := positiveIntQuery(contextGin, "take", 10)

		data, totalCount, listErr := events.ListEvents(contextGin.Request.Context(), page, take)
		if listErr != nil {
			logger.Error("event listing failed",
				zap.String("code", "events.list_failed"),
				zap.Error(listErr))
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, gin.H{
			"data":        data,
			"totalCount":  totalCount,
			"totalPages":  int(math.Ceil(float64(totalCount) / float64(take))),
			"currentPage": page,
		})
	}
}

func handleGetEvent(events EventStore) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		eventID, idErr := strconv.ParseUint(contextGin.Param("id"), 10, 64)
		if idErr != nil {
			contextGin.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid_id"})
			return
		}
		event, findErr := events.FindEventByID(contextGin.Request.Context(), eventID)
		if findErr != nil {
			if errors.Is(findErr, store.ErrEventNotFound) {
				contextGin.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "event_not_found"})
				return
			}
			contextGin.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		contextGin.JSON(http.StatusOK, event)
	}
}

func positiveIntQuery(contextGin *gin.Context, name string, fallback int) int {
	raw := contextGin.Query(name)
	if raw == "" {
		return fallback
	}
	value, parseErr := strconv.Atoi(raw)
	if parseErr != nil || value < 1 {
		return fallback
	}
	return value
}
