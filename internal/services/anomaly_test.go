package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/store"
)

func events(orderID uint, offsets ...time.Duration) []domain.StatusEvent {
	out := make([]domain.StatusEvent, 0, len(offsets))
	for i, off := range offsets {
		out = append(out, domain.StatusEvent{OrderID: orderID, Status: []string{"assigned", "picked_up", "in_transit"}[i%3], Timestamp: base.Add(off)})
	}
	return out
}

func TestScanRapidChangesFlagsBurst(t *testing.T) {
	evs := events(7, 0, 2*time.Minute, 4*time.Minute, 6*time.Minute, 9*time.Minute)
	evs = append(evs, events(8, 0, 30*time.Minute)...)

	got, err := ScanRapidChanges(evs, 15*time.Minute, 3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, uint(7), got[0].OrderID)
	assert.Equal(t, 5, got[0].ChangeCount)
	assert.Equal(t, base, got[0].FirstChange)
	assert.Equal(t, base.Add(9*time.Minute), got[0].LastChange)
}

func TestScanRapidChangesBusiestWindow(t *testing.T) {
	// two events early, then four close together
	evs := events(3, 0, 5*time.Minute, 40*time.Minute, 41*time.Minute, 42*time.Minute, 50*time.Minute)

	got, err := ScanRapidChanges(evs, 10*time.Minute, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 4, got[0].ChangeCount)
	assert.Equal(t, base.Add(40*time.Minute), got[0].FirstChange)
	assert.Equal(t, base.Add(50*time.Minute), got[0].LastChange, "window end is inclusive")
}

func TestScanRapidChangesOrdering(t *testing.T) {
	// unsorted input, orders interleaved
	evs := []domain.StatusEvent{
		{OrderID: 9, Timestamp: base.Add(2 * time.Minute)},
		{OrderID: 4, Timestamp: base.Add(time.Minute)},
		{OrderID: 9, Timestamp: base},
		{OrderID: 4, Timestamp: base},
	}
	got, err := ScanRapidChanges(evs, time.Hour, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, uint(9), got[0].OrderID)
	assert.Equal(t, uint(4), got[1].OrderID)
	assert.Equal(t, base, got[0].FirstChange)
}

func TestScanRapidChangesInvalidParams(t *testing.T) {
	_, err := ScanRapidChanges(nil, 0, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = ScanRapidChanges(nil, time.Minute, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)

	got, err := ScanRapidChanges(nil, time.Minute, 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestAnomalyScannerScan(t *testing.T) {
	m := store.NewMemory()
	for _, e := range events(1, 0, time.Minute, 2*time.Minute) {
		m.AddStatusEvent(e)
	}
	for _, e := range events(2, 0, time.Minute, 2*time.Minute, 3*time.Minute) {
		m.AddStatusEvent(e)
	}
	s := NewAnomalyScanner(m)

	all, err := s.Scan(context.Background(), nil, 5*time.Minute, 3)
	require.NoError(t, err)
	require.Len(t, all, 2)

	one := uint(2)
	only, err := s.Scan(context.Background(), &one, 5*time.Minute, 4)
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, uint(2), only[0].OrderID)

	_, err = s.Scan(context.Background(), nil, -time.Minute, 3)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
