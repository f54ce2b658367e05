package services

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/metrics"
	"dealer_tracker/internal/store"
)

// TieBreak picks between routes with the same count.
type TieBreak string

const (
	// TieBreakMostRecent prefers the route whose latest order completed last,
	// then the route seen first.
	TieBreakMostRecent TieBreak = "most_recent"
	// TieBreakFirstSeen prefers the route that appears first in the input.
	TieBreakFirstSeen TieBreak = "first_seen"
)

// ParseTieBreak maps a config value to a TieBreak, defaulting to TieBreakMostRecent.
func ParseTieBreak(s string) (TieBreak, error) {
	switch TieBreak(s) {
	case "", TieBreakMostRecent:
		return TieBreakMostRecent, nil
	case TieBreakFirstSeen:
		return TieBreakFirstSeen, nil
	}
	return "", fmt.Errorf("%w: unknown route tie-break %q", ErrInvalidInput, s)
}

// DefaultSwapAttempts bounds the read-compare-write cycle of UpdateDealerRoute.
const DefaultSwapAttempts = 3

type FrequentRoute struct {
	Route    geo.LineString `json:"route"`
	Count    int            `json:"count"`
	LastSeen time.Time      `json:"last_seen"`
}

type routeGroup struct {
	route     geo.LineString
	count     int
	lastSeen  time.Time
	firstSeen int
}

// Aggregate groups routes by exact equality and returns the largest group.
func Aggregate(routes []domain.CompletedRoute, tieBreak TieBreak) (FrequentRoute, error) {
	if len(routes) == 0 {
		return FrequentRoute{}, fmt.Errorf("route frequency: %w", ErrNoCandidates)
	}

	var groups []*routeGroup
	for i, r := range routes {
		if err := r.Route.Validate(); err != nil {
			return FrequentRoute{}, fmt.Errorf("order %d route: %w", r.OrderID, err)
		}
		var g *routeGroup
		for _, cand := range groups {
			if geo.RoutesEqual(cand.route, r.Route) {
				g = cand
				break
			}
		}
		if g == nil {
			g = &routeGroup{route: r.Route, firstSeen: i}
			groups = append(groups, g)
		}
		g.count++
		if r.CompletedAt.After(g.lastSeen) {
			g.lastSeen = r.CompletedAt
		}
	}

	best := groups[0]
	for _, g := range groups[1:] {
		if beats(g, best, tieBreak) {
			best = g
		}
	}
	return FrequentRoute{Route: best.route, Count: best.count, LastSeen: best.lastSeen}, nil
}

func beats(g, best *routeGroup, tieBreak TieBreak) bool {
	if g.count != best.count {
		return g.count > best.count
	}
	if tieBreak == TieBreakMostRecent && !g.lastSeen.Equal(best.lastSeen) {
		return g.lastSeen.After(best.lastSeen)
	}
	return g.firstSeen < best.firstSeen
}

// RouteAggregator keeps each dealer's MostFrequentRoute current.
type RouteAggregator struct {
	store    store.RouteStore
	clock    Clock
	locks    *KeyedMutex
	tieBreak TieBreak
	attempts int
}

func NewRouteAggregator(s store.RouteStore, clock Clock, locks *KeyedMutex, tieBreak TieBreak) *RouteAggregator {
	if clock == nil {
		clock = SystemClock
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	if tieBreak == "" {
		tieBreak = TieBreakMostRecent
	}
	return &RouteAggregator{store: s, clock: clock, locks: locks, tieBreak: tieBreak, attempts: DefaultSwapAttempts}
}

// MostFrequent aggregates the dealer's completed order routes without writing.
func (a *RouteAggregator) MostFrequent(ctx context.Context, dealerID uint) (FrequentRoute, error) {
	routes, err := a.store.GetCompletedOrderRoutes(ctx, dealerID)
	if err != nil {
		return FrequentRoute{}, err
	}
	return Aggregate(routes, a.tieBreak)
}

// Refresh recomputes the most frequent route and stores it if it changed.
func (a *RouteAggregator) Refresh(ctx context.Context, dealerID uint) (FrequentRoute, bool, error) {
	best, err := a.MostFrequent(ctx, dealerID)
	if err != nil {
		return FrequentRoute{}, false, err
	}
	changed, err := a.UpdateDealerRoute(ctx, dealerID, best.Route)
	if err != nil {
		return FrequentRoute{}, false, err
	}
	return best, changed, nil
}

// UpdateDealerRoute stores route as the dealer's most frequent route only if it
// differs from the current one. Calls for one dealer are serialised; a lost
// compare-and-swap re-reads and retries up to the attempt bound.
func (a *RouteAggregator) UpdateDealerRoute(ctx context.Context, dealerID uint, route geo.LineString) (bool, error) {
	if err := route.Validate(); err != nil {
		return false, err
	}
	unlock := a.locks.Lock(dealerID)
	defer unlock()

	for attempt := 1; attempt <= a.attempts; attempt++ {
		current, err := a.store.GetDealer(ctx, dealerID)
		if err != nil {
			return false, err
		}
		next, changed := domain.ApplyFrequentRoute(current, route, a.clock())
		if !changed {
			metrics.RouteUpdates.WithLabelValues("unchanged").Inc()
			return false, nil
		}
		swapped, err := a.store.SwapDealerRoute(ctx, dealerID, current.RouteVersion, next.MostFrequentRoute, *next.RouteLastUpdated)
		if err != nil {
			return false, err
		}
		if swapped {
			metrics.RouteUpdates.WithLabelValues("changed").Inc()
			logrus.WithFields(logrus.Fields{
				"dealer_id":     dealerID,
				"route_points":  len(route),
				"route_version": next.RouteVersion,
			}).Info("Dealer most frequent route updated.")
			return true, nil
		}
		logrus.WithFields(logrus.Fields{
			"dealer_id": dealerID,
			"attempt":   attempt,
		}).Warn("Dealer route changed concurrently, retrying compare-and-swap.")
	}

	metrics.RouteUpdates.WithLabelValues("conflict").Inc()
	return false, fmt.Errorf("%w: dealer %d route update lost %d compare-and-swap attempts", store.ErrStorage, dealerID, a.attempts)
}
