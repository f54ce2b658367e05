package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/metrics"
	"dealer_tracker/internal/store"
)

// Anomaly is an order whose status changed at least threshold times inside one window.
type Anomaly struct {
	OrderID     uint      `json:"order_id"`
	ChangeCount int       `json:"change_count"`
	FirstChange time.Time `json:"first_change"`
	LastChange  time.Time `json:"last_change"`
}

// ScanRapidChanges flags each order at most once, reporting its busiest window
// [t, t+window]; ties go to the earliest window. Results follow the order in which
// each order first appears in events.
func ScanRapidChanges(events []domain.StatusEvent, window time.Duration, threshold int) ([]Anomaly, error) {
	if window <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %s", ErrInvalidInput, window)
	}
	if threshold < 1 {
		return nil, fmt.Errorf("%w: threshold must be at least 1, got %d", ErrInvalidInput, threshold)
	}

	byOrder := make(map[uint][]time.Time)
	var orderIDs []uint
	for _, e := range events {
		if _, ok := byOrder[e.OrderID]; !ok {
			orderIDs = append(orderIDs, e.OrderID)
		}
		byOrder[e.OrderID] = append(byOrder[e.OrderID], e.Timestamp)
	}

	out := []Anomaly{}
	for _, id := range orderIDs {
		ts := byOrder[id]
		sort.SliceStable(ts, func(i, j int) bool { return ts[i].Before(ts[j]) })
		if a, ok := busiestWindow(id, ts, window); ok && a.ChangeCount >= threshold {
			out = append(out, a)
		}
	}
	return out, nil
}

// busiestWindow slides the window start over sorted timestamps.
func busiestWindow(orderID uint, ts []time.Time, window time.Duration) (Anomaly, bool) {
	if len(ts) == 0 {
		return Anomaly{}, false
	}
	best := Anomaly{OrderID: orderID}
	end := 0
	for start := range ts {
		if end < start {
			end = start
		}
		limit := ts[start].Add(window)
		for end+1 < len(ts) && !ts[end+1].After(limit) {
			end++
		}
		if n := end - start + 1; n > best.ChangeCount {
			best.ChangeCount = n
			best.FirstChange = ts[start]
			best.LastChange = ts[end]
		}
	}
	return best, true
}

type AnomalyScanner struct {
	events store.EventSource
}

func NewAnomalyScanner(events store.EventSource) *AnomalyScanner {
	return &AnomalyScanner{events: events}
}

// Scan reads status events for one order, or all orders when orderID is nil.
func (s *AnomalyScanner) Scan(ctx context.Context, orderID *uint, window time.Duration, threshold int) ([]Anomaly, error) {
	if window <= 0 || threshold < 1 {
		return ScanRapidChanges(nil, window, threshold)
	}
	events, err := s.events.GetOrderStatusEvents(ctx, orderID)
	if err != nil {
		return nil, err
	}
	anomalies, err := ScanRapidChanges(events, window, threshold)
	if err != nil {
		return nil, err
	}
	metrics.AnomaliesFlagged.Add(float64(len(anomalies)))
	if len(anomalies) > 0 {
		logrus.WithFields(logrus.Fields{
			"flagged":   len(anomalies),
			"window":    window.String(),
			"threshold": threshold,
		}).Warn("Orders flagged for rapid status change.")
	}
	return anomalies, nil
}
