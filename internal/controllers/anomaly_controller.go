package controllers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// ListAnomalies flags orders whose status changed at least threshold times
// within window (a Go duration such as 15m). Both default from config.
func (h *Handler) ListAnomalies(c *gin.Context) {
	window := h.opts.AnomalyWindow
	if raw := c.Query("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			badRequest(c, "invalid window %q", raw)
			return
		}
		window = d
	}
	threshold := h.opts.AnomalyThreshold
	if raw := c.Query("threshold"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "invalid threshold %q", raw)
			return
		}
		threshold = n
	}
	orderID, ok := parseOptionalUint(c, "order_id")
	if !ok {
		return
	}

	anomalies, err := h.anomalies.Scan(c.Request.Context(), orderID, window, threshold)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": anomalies})
}
