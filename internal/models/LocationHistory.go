package models

import (
	"time"

	"gorm.io/gorm"
)

// DealerHistory is the per-dealer header of the append-only location log.
type DealerHistory struct {
	gorm.Model
	DealerID    uint              `json:"dealer_id" gorm:"uniqueIndex"`
	LastUpdated time.Time         `json:"last_updated"`
	Entries     []LocationHistory `gorm:"foreignKey:DealerHistoryID;constraint:OnDelete:CASCADE" json:"entries,omitempty"`
}

// LocationHistory is one ping. Rows are inserted, never updated.
type LocationHistory struct {
	gorm.Model
	DealerHistoryID uint      `json:"dealer_history_id" gorm:"index"`
	DealerID        uint      `json:"dealer_id" gorm:"index:idx_dealer_ts"`
	Latitude        float64   `json:"latitude"`
	Longitude       float64   `json:"longitude"`
	OrderID         *uint     `json:"order_id" gorm:"index"`
	Timestamp       time.Time `json:"timestamp" gorm:"index:idx_dealer_ts"`
}
