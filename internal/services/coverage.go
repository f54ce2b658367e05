package services

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/metrics"
	"dealer_tracker/internal/store"
)

// AllCompanies selects every company with any coverage.
const AllCompanies uint = 0

// CoverageResult answers "is this point serviced". CoverageID is nil iff IsCovered
// is false; NearestCoverageID then names the closest area.
type CoverageResult struct {
	IsCovered         bool    `json:"is_covered"`
	CoverageID        *uint   `json:"coverage_id"`
	CoverageName      string  `json:"coverage_name"`
	CompanyID         uint    `json:"company_id"`
	NearestCoverageID uint    `json:"nearest_coverage_id,omitempty"`
	DistanceMeters    float64 `json:"distance_meters"`
}

// CoverageMatcher answers point-in-coverage queries per company.
type CoverageMatcher struct {
	source store.CoverageSource
}

// NewCoverageMatcher reads companies and areas from source on every check.
func NewCoverageMatcher(source store.CoverageSource) *CoverageMatcher {
	return &CoverageMatcher{source: source}
}

type candidateArea struct {
	companyID uint
	area      domain.CoverageArea
}

// Check tests p against companyID's coverage, or every company's for AllCompanies.
func (m *CoverageMatcher) Check(ctx context.Context, p geo.Point, companyID uint) (CoverageResult, error) {
	if err := p.Validate(); err != nil {
		metrics.CoverageChecks.WithLabelValues("error").Inc()
		return CoverageResult{}, err
	}
	candidates, err := m.candidates(ctx, companyID)
	if err != nil {
		metrics.CoverageChecks.WithLabelValues("error").Inc()
		return CoverageResult{}, err
	}
	res, err := matchCoverage(p, candidates)
	if err != nil {
		metrics.CoverageChecks.WithLabelValues("error").Inc()
		return CoverageResult{}, err
	}
	if res.IsCovered {
		metrics.CoverageChecks.WithLabelValues("covered").Inc()
	} else {
		metrics.CoverageChecks.WithLabelValues("uncovered").Inc()
	}
	areaID := res.NearestCoverageID
	if res.CoverageID != nil {
		areaID = *res.CoverageID
	}
	logrus.WithFields(logrus.Fields{
		"company_id": companyID,
		"covered":    res.IsCovered,
		"area_id":    areaID,
		"distance_m": fmt.Sprintf("%.2f", res.DistanceMeters),
	}).Debug("Coverage check evaluated.")
	return res, nil
}

// candidates lists areas company by company in ascending id order; an area
// shared by several companies is kept once, under the first company.
func (m *CoverageMatcher) candidates(ctx context.Context, companyID uint) ([]candidateArea, error) {
	var companyIDs []uint
	if companyID != AllCompanies {
		companyIDs = []uint{companyID}
	} else {
		companies, err := m.source.GetCompanies(ctx)
		if err != nil {
			return nil, err
		}
		for _, c := range companies {
			if len(c.CoverageAreaIDs) > 0 {
				companyIDs = append(companyIDs, c.ID)
			}
		}
		sort.Slice(companyIDs, func(i, j int) bool { return companyIDs[i] < companyIDs[j] })
	}

	seen := make(map[uint]struct{})
	var out []candidateArea
	for _, id := range companyIDs {
		areas, err := m.source.GetCoverageAreasForCompany(ctx, id)
		if err != nil {
			return nil, err
		}
		sort.Slice(areas, func(i, j int) bool { return areas[i].ID < areas[j].ID })
		for _, a := range areas {
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			out = append(out, candidateArea{companyID: id, area: a})
		}
	}
	return out, nil
}

// matchCoverage returns the first containing area, or the nearest one by boundary
// distance with ties going to the lowest area id.
func matchCoverage(p geo.Point, candidates []candidateArea) (CoverageResult, error) {
	if len(candidates) == 0 {
		return CoverageResult{}, fmt.Errorf("coverage check: %w", ErrNoCandidates)
	}
	for _, c := range candidates {
		in, err := geo.Contains(c.area.Polygon, p)
		if err != nil {
			return CoverageResult{}, fmt.Errorf("coverage area %d: %w", c.area.ID, err)
		}
		if in {
			id := c.area.ID
			return CoverageResult{
				IsCovered:    true,
				CoverageID:   &id,
				CoverageName: c.area.Name,
				CompanyID:    c.companyID,
			}, nil
		}
	}

	best := CoverageResult{DistanceMeters: math.Inf(1)}
	found := false
	for _, c := range candidates {
		d, err := geo.DistanceToPolygonBoundary(p, c.area.Polygon)
		if err != nil {
			return CoverageResult{}, fmt.Errorf("coverage area %d: %w", c.area.ID, err)
		}
		if !found || d < best.DistanceMeters || (d == best.DistanceMeters && c.area.ID < best.NearestCoverageID) {
			best = CoverageResult{
				CoverageName:      c.area.Name,
				CompanyID:         c.companyID,
				NearestCoverageID: c.area.ID,
				DistanceMeters:    d,
			}
			found = true
		}
	}
	return best, nil
}
