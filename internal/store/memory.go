package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
)

// Memory is an in-memory store used by tests and when STORE_BACKEND=memory.
type Memory struct {
	mu          sync.Mutex
	companies   map[uint]domain.Company
	areas       map[uint]domain.CoverageArea
	dealers     map[uint]domain.Dealer
	histories   map[uint]*domain.DealerHistory
	orders      map[uint]memOrder
	events      []domain.StatusEvent
	emergencies map[uint]domain.EmergencyReport
}

type memOrder struct {
	dealerID    uint
	route       geo.LineString
	status      string
	completedAt time.Time
}

// StatusCompleted marks orders whose routes feed route frequency.
const StatusCompleted = "completed"

func NewMemory() *Memory {
	return &Memory{
		companies:   map[uint]domain.Company{},
		areas:       map[uint]domain.CoverageArea{},
		dealers:     map[uint]domain.Dealer{},
		histories:   map[uint]*domain.DealerHistory{},
		orders:      map[uint]memOrder{},
		emergencies: map[uint]domain.EmergencyReport{},
	}
}

func (m *Memory) PutCompany(c domain.Company) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.companies[c.ID] = c
}

func (m *Memory) PutCoverageArea(a domain.CoverageArea) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.areas[a.ID] = a
}

func (m *Memory) PutDealer(d domain.Dealer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dealers[d.ID] = d
}

// PutOrder records an order's route and status; completedAt only matters for completed orders.
func (m *Memory) PutOrder(orderID, dealerID uint, route geo.LineString, status string, completedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[orderID] = memOrder{dealerID: dealerID, route: route, status: status, completedAt: completedAt}
}

func (m *Memory) AddStatusEvent(e domain.StatusEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
}

func (m *Memory) PutEmergencyReport(r domain.EmergencyReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emergencies[r.ID] = r
}

func (m *Memory) Ping(ctx context.Context) error { return nil }

func (m *Memory) GetCompanies(ctx context.Context) ([]domain.Company, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Company, 0, len(m.companies))
	for _, c := range m.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetCoverageAreasForCompany resolves the company's weak area references; dangling ids are skipped.
func (m *Memory) GetCoverageAreasForCompany(ctx context.Context, companyID uint) ([]domain.CoverageArea, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.companies[companyID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]domain.CoverageArea, 0, len(c.CoverageAreaIDs))
	for _, id := range c.CoverageAreaIDs {
		if a, ok := m.areas[id]; ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetDealer(ctx context.Context, dealerID uint) (domain.Dealer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dealers[dealerID]
	if !ok {
		return domain.Dealer{}, ErrNotFound
	}
	return d, nil
}

func (m *Memory) ListDealers(ctx context.Context) ([]domain.Dealer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Dealer, 0, len(m.dealers))
	for _, d := range m.dealers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetCompletedOrderRoutes(ctx context.Context, dealerID uint) ([]domain.CompletedRoute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.dealers[dealerID]; !ok {
		return nil, ErrNotFound
	}
	var out []domain.CompletedRoute
	for id, o := range m.orders {
		if o.dealerID == dealerID && o.status == StatusCompleted && o.route != nil {
			out = append(out, domain.CompletedRoute{OrderID: id, Route: o.route, CompletedAt: o.completedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

func (m *Memory) SwapDealerRoute(ctx context.Context, dealerID, expectedVersion uint, route geo.LineString, updatedAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dealers[dealerID]
	if !ok {
		return false, ErrNotFound
	}
	if d.RouteVersion != expectedVersion {
		return false, nil
	}
	stamp := updatedAt
	d.MostFrequentRoute = route
	d.RouteLastUpdated = &stamp
	d.RouteVersion = expectedVersion + 1
	m.dealers[dealerID] = d
	return true, nil
}

func (m *Memory) GetDealerHistory(ctx context.Context, dealerID uint) (domain.DealerHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.histories[dealerID]
	if !ok {
		return domain.DealerHistory{}, ErrNotFound
	}
	entries := make([]domain.LocationEntry, len(h.Entries))
	copy(entries, h.Entries)
	return domain.DealerHistory{DealerID: h.DealerID, Entries: entries, LastUpdated: h.LastUpdated}, nil
}

func (m *Memory) AppendDealerHistory(ctx context.Context, dealerID uint, entry domain.LocationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dealers[dealerID]
	if !ok {
		return ErrNotFound
	}
	h, ok := m.histories[dealerID]
	if !ok {
		h = &domain.DealerHistory{DealerID: dealerID}
		m.histories[dealerID] = h
	}
	h.Entries = append(h.Entries, entry)
	h.LastUpdated = entry.Timestamp
	d.Location = entry.Point
	m.dealers[dealerID] = d
	return nil
}

func (m *Memory) GetOrderStatusEvents(ctx context.Context, orderID *uint) ([]domain.StatusEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.StatusEvent, 0, len(m.events))
	for _, e := range m.events {
		if orderID == nil || e.OrderID == *orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *Memory) GetEmergencyReport(ctx context.Context, reportID uint) (domain.EmergencyReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.emergencies[reportID]
	if !ok {
		return domain.EmergencyReport{}, ErrNotFound
	}
	return r, nil
}
