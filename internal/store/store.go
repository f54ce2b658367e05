package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
)

var (
	ErrNotFound = errors.New("not found")
	// ErrStorage wraps any collaborator I/O failure. The driver error stays in the chain.
	ErrStorage = errors.New("storage failure")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

// CoverageSource feeds the coverage matcher.
type CoverageSource interface {
	GetCompanies(ctx context.Context) ([]domain.Company, error)
	GetCoverageAreasForCompany(ctx context.Context, companyID uint) ([]domain.CoverageArea, error)
}

type DealerSource interface {
	GetDealer(ctx context.Context, dealerID uint) (domain.Dealer, error)
	ListDealers(ctx context.Context) ([]domain.Dealer, error)
}

// RouteStore persists the most frequent route. SwapDealerRoute writes only when
// the stored route version still equals expectedVersion and reports whether it did.
type RouteStore interface {
	DealerSource
	GetCompletedOrderRoutes(ctx context.Context, dealerID uint) ([]domain.CompletedRoute, error)
	SwapDealerRoute(ctx context.Context, dealerID, expectedVersion uint, route geo.LineString, updatedAt time.Time) (bool, error)
}

// HistoryStore is append-only. AppendDealerHistory creates the history on first use
// and moves the dealer's current location.
type HistoryStore interface {
	GetDealerHistory(ctx context.Context, dealerID uint) (domain.DealerHistory, error)
	AppendDealerHistory(ctx context.Context, dealerID uint, entry domain.LocationEntry) error
}

type EventSource interface {
	// GetOrderStatusEvents returns every order's events when orderID is nil.
	GetOrderStatusEvents(ctx context.Context, orderID *uint) ([]domain.StatusEvent, error)
}

type EmergencySource interface {
	GetEmergencyReport(ctx context.Context, reportID uint) (domain.EmergencyReport, error)
}

// Store is everything the engine needs from persistence.
type Store interface {
	CoverageSource
	RouteStore
	HistoryStore
	EventSource
	EmergencySource
	Ping(ctx context.Context) error
}
