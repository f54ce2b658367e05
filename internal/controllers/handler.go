package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/middleware"
	"dealer_tracker/internal/services"
	"dealer_tracker/internal/store"
)

// Options tune the engine behind the handlers.
type Options struct {
	Clock            services.Clock
	TieBreak         services.TieBreak
	IndexFactory     services.IndexFactory
	AnomalyWindow    time.Duration
	AnomalyThreshold int
}

// Handler serves the HTTP surface of the analytics engine.
type Handler struct {
	store     store.Store
	auth      *middleware.Auth
	coverage  *services.CoverageMatcher
	nearest   *services.NearestFinder
	routes    *services.RouteAggregator
	history   *services.HistoryTracker
	anomalies *services.AnomalyScanner
	hub       *LocationHub
	opts      Options
}

func NewHandler(s store.Store, auth *middleware.Auth, opts Options) *Handler {
	if opts.AnomalyWindow <= 0 {
		opts.AnomalyWindow = 15 * time.Minute
	}
	if opts.AnomalyThreshold < 1 {
		opts.AnomalyThreshold = 3
	}
	// route updates and history appends for one dealer share a lock
	locks := services.NewKeyedMutex()
	return &Handler{
		store:     s,
		auth:      auth,
		coverage:  services.NewCoverageMatcher(s),
		nearest:   services.NewNearestFinder(s, s, opts.IndexFactory),
		routes:    services.NewRouteAggregator(s, opts.Clock, locks, opts.TieBreak),
		history:   services.NewHistoryTracker(s, opts.Clock, locks),
		anomalies: services.NewAnomalyScanner(s),
		hub:       NewLocationHub(),
		opts:      opts,
	}
}

// Close disconnects live monitors and stops the location hub.
func (h *Handler) Close() {
	h.hub.Close()
}

// Healthz reports whether the store answers.
func (h *Handler) Healthz(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		logrus.WithError(err).Error("Health check failed.")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps engine error kinds to status codes. Storage details stay in the log.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, geo.ErrInvalidCoordinate),
		errors.Is(err, geo.ErrInvalidGeometry),
		errors.Is(err, services.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrNoCandidates):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		logrus.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed.")
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, format string, args ...interface{}) {
	c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf(format, args...)})
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		badRequest(c, "invalid %s %q", name, c.Param(name))
		return 0, false
	}
	return uint(id), true
}

// parsePoint reads the required lat and lng query parameters.
func parsePoint(c *gin.Context) (geo.Point, bool) {
	lat, err := strconv.ParseFloat(c.Query("lat"), 64)
	if err != nil {
		badRequest(c, "invalid lat %q", c.Query("lat"))
		return geo.Point{}, false
	}
	lng, err := strconv.ParseFloat(c.Query("lng"), 64)
	if err != nil {
		badRequest(c, "invalid lng %q", c.Query("lng"))
		return geo.Point{}, false
	}
	return geo.Point{Lon: lng, Lat: lat}, true
}

func parseOptionalUint(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "invalid %s %q", name, raw)
		return nil, false
	}
	id := uint(v)
	return &id, true
}

func parseOptionalTime(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		badRequest(c, "invalid %s %q, expected RFC3339", name, raw)
		return time.Time{}, false
	}
	return t, true
}

// ownsDealer rejects a dealer token acting on another dealer's records.
func ownsDealer(c *gin.Context, dealerID uint) bool {
	userID, role, ok := middleware.Subject(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing caller identity"})
		return false
	}
	if role == middleware.RoleDealer && userID != dealerID {
		logrus.WithFields(logrus.Fields{
			"caller_dealer_id": userID,
			"target_dealer_id": dealerID,
		}).Warn("Dealer attempted to act on another dealer's records. Denying.")
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
		return false
	}
	return true
}
