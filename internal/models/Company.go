// internal/models/company.go
package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Company is a delivery company. Coverage areas and payment methods are held
// by id only; deleting a company never cascades into them.
type Company struct {
	gorm.Model
	Name    string `json:"name" binding:"required"`
	Email   string `gorm:"unique;not null" json:"email" binding:"required,email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`

	CoverageAreaIDs  pq.Int64Array `gorm:"type:bigint[]" json:"coverage_area_ids"`
	PaymentMethodIDs pq.Int64Array `gorm:"type:bigint[]" json:"payment_method_ids"`

	// Counters are maintained by order completion, not by the analytics engine.
	Deliveries       int     `json:"deliveries"`
	FailedDeliveries int     `json:"failed_deliveries"`
	TotalSales       float64 `json:"total_sales"`
}
