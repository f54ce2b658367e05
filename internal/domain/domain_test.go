package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealer_tracker/internal/geo"
)

func TestApplyFrequentRoute(t *testing.T) {
	route := geo.LineString{{Lon: 36.80, Lat: -1.30}, {Lon: 36.81, Lat: -1.29}}
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	later := first.Add(time.Hour)

	d := Dealer{ID: 7}
	updated, changed := ApplyFrequentRoute(d, route, first)
	require.True(t, changed)
	require.NotNil(t, updated.RouteLastUpdated)
	assert.Equal(t, first, *updated.RouteLastUpdated)
	assert.Equal(t, uint(1), updated.RouteVersion)
	assert.Nil(t, d.MostFrequentRoute, "input dealer is not mutated")

	again, changed := ApplyFrequentRoute(updated, geo.LineString{{Lon: 36.80, Lat: -1.30}, {Lon: 36.81, Lat: -1.29}}, later)
	assert.False(t, changed)
	assert.Equal(t, first, *again.RouteLastUpdated)
	assert.Equal(t, uint(1), again.RouteVersion)

	other := geo.LineString{{Lon: 36.80, Lat: -1.30}, {Lon: 36.82, Lat: -1.28}}
	next, changed := ApplyFrequentRoute(again, other, later)
	assert.True(t, changed)
	assert.Equal(t, later, *next.RouteLastUpdated)
	assert.Equal(t, other, next.MostFrequentRoute)
}
