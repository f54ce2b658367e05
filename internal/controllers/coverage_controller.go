package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealer_tracker/internal/services"
)

// CheckCoverage answers whether lat/lng falls in a company's coverage, or any
// company's when company_id is omitted.
func (h *Handler) CheckCoverage(c *gin.Context) {
	p, ok := parsePoint(c)
	if !ok {
		return
	}
	companyID, ok := parseOptionalUint(c, "company_id")
	if !ok {
		return
	}
	id := services.AllCompanies
	if companyID != nil {
		id = *companyID
	}

	res, err := h.coverage.Check(c.Request.Context(), p, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": res})
}
