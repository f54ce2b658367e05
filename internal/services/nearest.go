package services

import (
	"context"
	"fmt"

	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/store"
)

// Candidate is anything with a position that can be ranked by distance:
// a dealer or a delivery point.
type Candidate struct {
	ID        uint      `json:"id"`
	Name      string    `json:"name"`
	Location  geo.Point `json:"location"`
	Available bool      `json:"available"`
}

// Filter keeps a candidate when it returns true. A nil Filter keeps everything.
type Filter func(Candidate) bool

// OnlyAvailable keeps candidates flagged available.
func OnlyAvailable(c Candidate) bool { return c.Available }

// NearestResult is the winning candidate and its great-circle distance.
type NearestResult struct {
	Candidate      Candidate `json:"candidate"`
	DistanceMeters float64   `json:"distance_meters"`
}

// Index ranks candidates by distance to a reference point.
type Index interface {
	Nearest(ref geo.Point, keep Filter) (NearestResult, error)
}

// IndexFactory builds an Index over a candidate snapshot.
type IndexFactory func([]Candidate) (Index, error)

// LinearIndex scans every candidate; enough for a single region.
type LinearIndex struct {
	candidates []Candidate
}

// NewLinearIndex validates every location up front.
func NewLinearIndex(candidates []Candidate) (Index, error) {
	for _, c := range candidates {
		if err := c.Location.Validate(); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", c.ID, err)
		}
	}
	return &LinearIndex{candidates: candidates}, nil
}

// Nearest returns the closest kept candidate; ties go to the lowest id.
func (ix *LinearIndex) Nearest(ref geo.Point, keep Filter) (NearestResult, error) {
	if err := ref.Validate(); err != nil {
		return NearestResult{}, err
	}
	var best NearestResult
	found := false
	for _, c := range ix.candidates {
		if keep != nil && !keep(c) {
			continue
		}
		d, err := geo.Distance(ref, c.Location)
		if err != nil {
			return NearestResult{}, err
		}
		if !found || d < best.DistanceMeters || (d == best.DistanceMeters && c.ID < best.Candidate.ID) {
			best = NearestResult{Candidate: c, DistanceMeters: d}
			found = true
		}
	}
	if !found {
		return NearestResult{}, fmt.Errorf("nearest point: %w", ErrNoCandidates)
	}
	return best, nil
}

// NearestFinder answers nearest-dealer queries over the dealer store.
type NearestFinder struct {
	dealers     store.DealerSource
	emergencies store.EmergencySource
	newIndex    IndexFactory
}

// NewNearestFinder uses a LinearIndex when newIndex is nil.
func NewNearestFinder(dealers store.DealerSource, emergencies store.EmergencySource, newIndex IndexFactory) *NearestFinder {
	if newIndex == nil {
		newIndex = NewLinearIndex
	}
	return &NearestFinder{dealers: dealers, emergencies: emergencies, newIndex: newIndex}
}

// Nearest ranks caller-supplied candidates such as delivery points.
func (f *NearestFinder) Nearest(ref geo.Point, candidates []Candidate, keep Filter) (NearestResult, error) {
	if err := ref.Validate(); err != nil {
		return NearestResult{}, err
	}
	ix, err := f.newIndex(candidates)
	if err != nil {
		return NearestResult{}, err
	}
	return ix.Nearest(ref, keep)
}

func (f *NearestFinder) NearestDealer(ctx context.Context, ref geo.Point, onlyAvailable bool) (NearestResult, error) {
	var keep Filter
	if onlyAvailable {
		keep = OnlyAvailable
	}
	return f.nearestDealer(ctx, ref, keep)
}

// NearestDealerToEmergency finds the closest available dealer to a report,
// excluding the dealer who filed it.
func (f *NearestFinder) NearestDealerToEmergency(ctx context.Context, reportID uint) (NearestResult, error) {
	report, err := f.emergencies.GetEmergencyReport(ctx, reportID)
	if err != nil {
		return NearestResult{}, err
	}
	return f.nearestDealer(ctx, report.Point, func(c Candidate) bool {
		return c.Available && c.ID != report.DealerID
	})
}

func (f *NearestFinder) nearestDealer(ctx context.Context, ref geo.Point, keep Filter) (NearestResult, error) {
	if err := ref.Validate(); err != nil {
		return NearestResult{}, err
	}
	dealers, err := f.dealers.ListDealers(ctx)
	if err != nil {
		return NearestResult{}, err
	}
	candidates := make([]Candidate, 0, len(dealers))
	for _, d := range dealers {
		candidates = append(candidates, Candidate{ID: d.ID, Name: d.Name, Location: d.Location, Available: d.Available})
	}
	ix, err := f.newIndex(candidates)
	if err != nil {
		return NearestResult{}, err
	}
	return ix.Nearest(ref, keep)
}
