package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
)

var t0 = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func TestMemoryCoverageLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.PutCoverageArea(domain.CoverageArea{ID: 2, Name: "b"})
	m.PutCoverageArea(domain.CoverageArea{ID: 1, Name: "a"})
	m.PutCompany(domain.Company{ID: 5, CoverageAreaIDs: []uint{2, 1, 77}})
	m.PutCompany(domain.Company{ID: 4})

	companies, err := m.GetCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 2)
	assert.Equal(t, uint(4), companies[0].ID)

	areas, err := m.GetCoverageAreasForCompany(ctx, 5)
	require.NoError(t, err)
	require.Len(t, areas, 2, "dangling area id is skipped")
	assert.Equal(t, uint(1), areas[0].ID)

	_, err = m.GetCoverageAreasForCompany(ctx, 6)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySwapDealerRoute(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.PutDealer(domain.Dealer{ID: 1})
	route := geo.LineString{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}

	ok, err := m.SwapDealerRoute(ctx, 1, 0, route, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.SwapDealerRoute(ctx, 1, 0, route, t0.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "stale version loses")

	d, err := m.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), d.RouteVersion)
	assert.Equal(t, t0, *d.RouteLastUpdated)

	_, err = m.SwapDealerRoute(ctx, 9, 0, route, t0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCompletedRoutes(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.PutDealer(domain.Dealer{ID: 1})
	route := geo.LineString{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}
	m.PutOrder(3, 1, route, StatusCompleted, t0)
	m.PutOrder(1, 1, route, StatusCompleted, t0)
	m.PutOrder(2, 1, route, "cancelled", t0)
	m.PutOrder(4, 1, nil, StatusCompleted, t0)
	m.PutOrder(5, 2, route, StatusCompleted, t0)

	routes, err := m.GetCompletedOrderRoutes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, routes, 2)
	assert.Equal(t, uint(1), routes[0].OrderID)
	assert.Equal(t, uint(3), routes[1].OrderID)

	_, err = m.GetCompletedOrderRoutes(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryHistoryIsCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.PutDealer(domain.Dealer{ID: 1})

	_, err := m.GetDealerHistory(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	p := geo.Point{Lon: 36.8, Lat: -1.3}
	require.NoError(t, m.AppendDealerHistory(ctx, 1, domain.LocationEntry{Point: p, Timestamp: t0}))
	assert.ErrorIs(t, m.AppendDealerHistory(ctx, 2, domain.LocationEntry{Point: p, Timestamp: t0}), ErrNotFound)

	h, err := m.GetDealerHistory(ctx, 1)
	require.NoError(t, err)
	h.Entries[0].Point = geo.Point{}

	again, err := m.GetDealerHistory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, again.Entries[0].Point)
	assert.Equal(t, t0, again.LastUpdated)

	d, err := m.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p, d.Location)
}

func TestMemoryStatusEvents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	m.AddStatusEvent(domain.StatusEvent{OrderID: 1, Timestamp: t0})
	m.AddStatusEvent(domain.StatusEvent{OrderID: 2, Timestamp: t0})

	all, err := m.GetOrderStatusEvents(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	id := uint(2)
	one, err := m.GetOrderStatusEvents(ctx, &id)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, uint(2), one[0].OrderID)
}
