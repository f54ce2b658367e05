package models

import (
	"time"

	"gorm.io/gorm"
)

// Order is owned by the order workflow; the engine reads it.
type Order struct {
	gorm.Model
	DealerID uint   `json:"dealer_id" gorm:"index"`
	ClientID uint   `json:"client_id" gorm:"index"`
	Status   string `json:"status" gorm:"index"`

	// Geometry stored as a WKB LINESTRING (SRID 4326)
	EstimatedRoute []byte `gorm:"type:bytea"`

	OrderDate    time.Time  `json:"order_date"`
	DeliveryDate *time.Time `json:"delivery_date"`
}

// OrderStatusEvent is appended by the order workflow on every status change.
type OrderStatusEvent struct {
	gorm.Model
	OrderID   uint      `json:"order_id" gorm:"index"`
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

type EmergencyReport struct {
	gorm.Model
	OrderID   uint    `json:"order_id"`
	DealerID  uint    `json:"dealer_id"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}
