package controllers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
)

// locationView is the wire shape of one history entry.
type locationView struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
	OrderID   *uint     `json:"order_id,omitempty"`
}

func toLocationView(e domain.LocationEntry) locationView {
	return locationView{Latitude: e.Point.Lat, Longitude: e.Point.Lon, Timestamp: e.Timestamp, OrderID: e.OrderID}
}

// NearestDealer ranks dealers by distance to lat/lng. available=true skips busy dealers.
func (h *Handler) NearestDealer(c *gin.Context) {
	p, ok := parsePoint(c)
	if !ok {
		return
	}
	onlyAvailable := false
	if raw := c.Query("available"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			badRequest(c, "invalid available %q", raw)
			return
		}
		onlyAvailable = v
	}

	res, err := h.nearest.NearestDealer(c.Request.Context(), p, onlyAvailable)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

// NearestDealerToEmergency finds backup for the dealer who raised an emergency.
func (h *Handler) NearestDealerToEmergency(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, err := h.nearest.NearestDealerToEmergency(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}

// FrequentRoute computes the dealer's most frequent completed route without storing it.
func (h *Handler) FrequentRoute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !ownsDealer(c, id) {
		return
	}
	res, err := h.routes.MostFrequent(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	// dashboards draw the route straight from GeoJSON
	geometry, err := geo.LineStringGeoJSON(res.Route)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res, "geojson": json.RawMessage(geometry)})
}

// RefreshRoute recomputes and stores the dealer's most frequent route.
func (h *Handler) RefreshRoute(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	res, changed, err := h.routes.Refresh(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res, "changed": changed})
}

// AppendHistory records a location ping for the dealer. The server clock stamps it.
func (h *Handler) AppendHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !ownsDealer(c, id) {
		return
	}
	var input struct {
		Latitude  *float64 `json:"latitude" binding:"required"`
		Longitude *float64 `json:"longitude" binding:"required"`
		OrderID   *uint    `json:"order_id"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		badRequest(c, "Invalid location input: %s", err.Error())
		return
	}

	entry, err := h.history.Append(c.Request.Context(), id, geo.Point{Lon: *input.Longitude, Lat: *input.Latitude}, input.OrderID)
	if err != nil {
		respondError(c, err)
		return
	}
	h.hub.PublishLocation(id, entry)
	c.JSON(http.StatusCreated, gin.H{"data": toLocationView(entry)})
}

// GetHistory lists entries between from and to (RFC3339, both optional and inclusive).
func (h *Handler) GetHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !ownsDealer(c, id) {
		return
	}
	from, ok := parseOptionalTime(c, "from")
	if !ok {
		return
	}
	to, ok := parseOptionalTime(c, "to")
	if !ok {
		return
	}

	entries, err := h.history.Window(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	out := make([]locationView, 0, len(entries))
	for _, e := range entries {
		out = append(out, toLocationView(e))
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

func (h *Handler) FrequentLocation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok || !ownsDealer(c, id) {
		return
	}
	res, err := h.history.MostFrequentLocation(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}
