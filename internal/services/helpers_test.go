package services

import (
	"sync"
	"time"

	"dealer_tracker/internal/geo"
)

var base = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

// stepClock returns base, base+step, base+2*step, ...
type stepClock struct {
	mu   sync.Mutex
	next time.Time
	step time.Duration
}

func newStepClock(start time.Time, step time.Duration) *stepClock {
	return &stepClock{next: start, step: step}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func box(lon, lat, size float64) geo.Polygon {
	return geo.NewPolygon([]geo.Point{
		{Lon: lon, Lat: lat},
		{Lon: lon + size, Lat: lat},
		{Lon: lon + size, Lat: lat + size},
		{Lon: lon, Lat: lat + size},
	})
}
