package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/metrics"
	"dealer_tracker/internal/store"
)

// HistoryTracker appends and queries each dealer's location log.
type HistoryTracker struct {
	store store.HistoryStore
	clock Clock
	locks *KeyedMutex
}

// NewHistoryTracker shares locks with the route aggregator when both are given the same KeyedMutex.
func NewHistoryTracker(s store.HistoryStore, clock Clock, locks *KeyedMutex) *HistoryTracker {
	if clock == nil {
		clock = SystemClock
	}
	if locks == nil {
		locks = NewKeyedMutex()
	}
	return &HistoryTracker{store: s, clock: clock, locks: locks}
}

// Append records a ping stamped with the clock. If the clock is behind the last
// stored entry the stamp is raised to it, so the log never goes backwards.
func (t *HistoryTracker) Append(ctx context.Context, dealerID uint, p geo.Point, orderID *uint) (domain.LocationEntry, error) {
	if err := p.Validate(); err != nil {
		return domain.LocationEntry{}, err
	}
	unlock := t.locks.Lock(dealerID)
	defer unlock()

	now := t.clock()
	h, err := t.store.GetDealerHistory(ctx, dealerID)
	switch {
	case err == nil:
		if now.Before(h.LastUpdated) {
			now = h.LastUpdated
		}
	case errors.Is(err, store.ErrNotFound):
		// first ping for this dealer
	default:
		return domain.LocationEntry{}, err
	}

	entry := domain.LocationEntry{Point: p, Timestamp: now, OrderID: orderID}
	if err := t.store.AppendDealerHistory(ctx, dealerID, entry); err != nil {
		return domain.LocationEntry{}, err
	}
	metrics.HistoryAppends.Inc()
	fields := logrus.Fields{
		"dealer_id": dealerID,
		"latitude":  p.Lat,
		"longitude": p.Lon,
		"timestamp": now.Format(time.RFC3339Nano),
	}
	if orderID != nil {
		fields["order_id"] = *orderID
	}
	logrus.WithFields(fields).Debug("Dealer location appended to history.")
	return entry, nil
}

// Window returns entries with from <= timestamp <= to in stored order. A zero
// from or to leaves that side unbounded.
func (t *HistoryTracker) Window(ctx context.Context, dealerID uint, from, to time.Time) ([]domain.LocationEntry, error) {
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, fmt.Errorf("%w: window ends before it starts", ErrInvalidInput)
	}
	h, err := t.store.GetDealerHistory(ctx, dealerID)
	if err != nil {
		return nil, err
	}
	out := []domain.LocationEntry{}
	for _, e := range h.Entries {
		if !from.IsZero() && e.Timestamp.Before(from) {
			continue
		}
		if !to.IsZero() && e.Timestamp.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

type LocationFrequency struct {
	Point geo.Point `json:"point"`
	Count int       `json:"count"`
}

// MostFrequentLocation returns the dealer's modal point; ties go to the point seen first.
func (t *HistoryTracker) MostFrequentLocation(ctx context.Context, dealerID uint) (LocationFrequency, error) {
	h, err := t.store.GetDealerHistory(ctx, dealerID)
	if err != nil {
		return LocationFrequency{}, err
	}
	return ModeLocation(h.Entries)
}

func ModeLocation(entries []domain.LocationEntry) (LocationFrequency, error) {
	if len(entries) == 0 {
		return LocationFrequency{}, fmt.Errorf("location history: %w", ErrNoCandidates)
	}
	counts := make(map[geo.Point]int, len(entries))
	var order []geo.Point
	for _, e := range entries {
		if _, ok := counts[e.Point]; !ok {
			order = append(order, e.Point)
		}
		counts[e.Point]++
	}
	best := LocationFrequency{Point: order[0], Count: counts[order[0]]}
	for _, p := range order[1:] {
		if counts[p] > best.Count {
			best = LocationFrequency{Point: p, Count: counts[p]}
		}
	}
	return best, nil
}
