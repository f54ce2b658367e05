// Package domain holds the records the analytics engine reads and writes,
// independent of how they are persisted.
package domain

import (
	"time"

	"dealer_tracker/internal/geo"
)

// CoverageArea is a polygon a company can service. Companies reference it by id.
type CoverageArea struct {
	ID      uint
	Name    string
	Polygon geo.Polygon
}

type Company struct {
	ID               uint
	Name             string
	Email            string
	Phone            string
	CoverageAreaIDs  []uint
	PaymentMethodIDs []uint
	Deliveries       int
	FailedDeliveries int
	TotalSales       float64
}

// Dealer carries the most frequent route state. RouteLastUpdated is set iff
// MostFrequentRoute is non-nil. RouteVersion increments on every route write.
type Dealer struct {
	ID                uint
	Name              string
	Phone             string
	Location          geo.Point
	Available         bool
	MostFrequentRoute geo.LineString
	RouteLastUpdated  *time.Time
	RouteVersion      uint
}

// ApplyFrequentRoute returns d with candidate as its most frequent route when it
// differs from the stored one. The second result reports whether anything changed.
func ApplyFrequentRoute(d Dealer, candidate geo.LineString, now time.Time) (Dealer, bool) {
	if d.MostFrequentRoute != nil && geo.RoutesEqual(d.MostFrequentRoute, candidate) {
		return d, false
	}
	route := make(geo.LineString, len(candidate))
	copy(route, candidate)
	stamp := now
	d.MostFrequentRoute = route
	d.RouteLastUpdated = &stamp
	d.RouteVersion++
	return d, true
}

// LocationEntry is one ping in a dealer's history.
type LocationEntry struct {
	Point     geo.Point
	Timestamp time.Time
	OrderID   *uint
}

// DealerHistory is append-only; Entries are non-decreasing in Timestamp.
type DealerHistory struct {
	DealerID    uint
	Entries     []LocationEntry
	LastUpdated time.Time
}

// CompletedRoute is the route of one completed order.
type CompletedRoute struct {
	OrderID     uint
	Route       geo.LineString
	CompletedAt time.Time
}

type StatusEvent struct {
	OrderID   uint
	Status    string
	Timestamp time.Time
}

type EmergencyReport struct {
	ID       uint
	OrderID  uint
	DealerID uint
	Point    geo.Point
}
