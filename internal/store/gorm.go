package store

import (
	"context"
	"errors"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/models"
)

// Gorm is the PostgreSQL store. Geometry columns hold WKB bytes.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

func notFoundOr(op string, err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return storageErr(op, err)
}

func (g *Gorm) Ping(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return storageErr("ping", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return storageErr("ping", err)
	}
	return nil
}

func (g *Gorm) GetCompanies(ctx context.Context) ([]domain.Company, error) {
	var rows []models.Company
	if err := g.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, storageErr("list companies", err)
	}
	out := make([]domain.Company, 0, len(rows))
	for _, c := range rows {
		out = append(out, toCompany(c))
	}
	return out, nil
}

func (g *Gorm) GetCoverageAreasForCompany(ctx context.Context, companyID uint) ([]domain.CoverageArea, error) {
	var company models.Company
	if err := g.db.WithContext(ctx).First(&company, companyID).Error; err != nil {
		return nil, notFoundOr("get company", err)
	}
	if len(company.CoverageAreaIDs) == 0 {
		return []domain.CoverageArea{}, nil
	}

	var rows []models.CoverageArea
	if err := g.db.WithContext(ctx).
		Where("id IN ?", []int64(company.CoverageAreaIDs)).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, storageErr("list coverage areas", err)
	}
	out := make([]domain.CoverageArea, 0, len(rows))
	for _, r := range rows {
		pg, err := geo.UnmarshalPolygonWKB(r.Geometry)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.CoverageArea{ID: r.ID, Name: r.Name, Polygon: pg})
	}
	return out, nil
}

func (g *Gorm) GetDealer(ctx context.Context, dealerID uint) (domain.Dealer, error) {
	var row models.Dealer
	if err := g.db.WithContext(ctx).First(&row, dealerID).Error; err != nil {
		return domain.Dealer{}, notFoundOr("get dealer", err)
	}
	return toDealer(row)
}

func (g *Gorm) ListDealers(ctx context.Context) ([]domain.Dealer, error) {
	var rows []models.Dealer
	if err := g.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, storageErr("list dealers", err)
	}
	out := make([]domain.Dealer, 0, len(rows))
	for _, r := range rows {
		d, err := toDealer(r)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (g *Gorm) GetCompletedOrderRoutes(ctx context.Context, dealerID uint) ([]domain.CompletedRoute, error) {
	if err := g.dealerExists(ctx, g.db, dealerID); err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := g.db.WithContext(ctx).
		Where("dealer_id = ? AND status = ? AND estimated_route IS NOT NULL", dealerID, StatusCompleted).
		Order("id").
		Find(&orders).Error; err != nil {
		return nil, storageErr("list completed orders", err)
	}
	out := make([]domain.CompletedRoute, 0, len(orders))
	for _, o := range orders {
		route, err := geo.UnmarshalLineStringWKB(o.EstimatedRoute)
		if err != nil {
			return nil, err
		}
		completedAt := o.UpdatedAt
		if o.DeliveryDate != nil {
			completedAt = *o.DeliveryDate
		}
		out = append(out, domain.CompletedRoute{OrderID: o.ID, Route: route, CompletedAt: completedAt})
	}
	return out, nil
}

// SwapDealerRoute is a single conditional UPDATE keyed on route_version.
func (g *Gorm) SwapDealerRoute(ctx context.Context, dealerID, expectedVersion uint, route geo.LineString, updatedAt time.Time) (bool, error) {
	b, err := geo.MarshalLineStringWKB(route)
	if err != nil {
		return false, err
	}
	res := g.db.WithContext(ctx).
		Model(&models.Dealer{}).
		Where("id = ? AND route_version = ?", dealerID, expectedVersion).
		Updates(map[string]interface{}{
			"most_frequent_route": b,
			"route_last_updated":  updatedAt,
			"route_version":       expectedVersion + 1,
		})
	if res.Error != nil {
		return false, storageErr("swap dealer route", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}
	if err := g.dealerExists(ctx, g.db, dealerID); err != nil {
		return false, err
	}
	return false, nil
}

func (g *Gorm) GetDealerHistory(ctx context.Context, dealerID uint) (domain.DealerHistory, error) {
	var h models.DealerHistory
	if err := g.db.WithContext(ctx).Where("dealer_id = ?", dealerID).First(&h).Error; err != nil {
		return domain.DealerHistory{}, notFoundOr("get dealer history", err)
	}
	var rows []models.LocationHistory
	if err := g.db.WithContext(ctx).
		Where("dealer_history_id = ?", h.ID).
		Order("timestamp, id").
		Find(&rows).Error; err != nil {
		return domain.DealerHistory{}, storageErr("list location history", err)
	}
	out := domain.DealerHistory{DealerID: dealerID, LastUpdated: h.LastUpdated, Entries: make([]domain.LocationEntry, 0, len(rows))}
	for _, r := range rows {
		out.Entries = append(out.Entries, domain.LocationEntry{
			Point:     geo.Point{Lon: r.Longitude, Lat: r.Latitude},
			Timestamp: r.Timestamp,
			OrderID:   r.OrderID,
		})
	}
	return out, nil
}

// AppendDealerHistory inserts the ping, bumps the header and moves the dealer in one transaction.
func (g *Gorm) AppendDealerHistory(ctx context.Context, dealerID uint, entry domain.LocationEntry) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := g.dealerExists(ctx, tx, dealerID); err != nil {
			return err
		}

		var h models.DealerHistory
		if err := tx.Where(models.DealerHistory{DealerID: dealerID}).FirstOrCreate(&h).Error; err != nil {
			return storageErr("create dealer history", err)
		}

		row := models.LocationHistory{
			DealerHistoryID: h.ID,
			DealerID:        dealerID,
			Latitude:        entry.Point.Lat,
			Longitude:       entry.Point.Lon,
			OrderID:         entry.OrderID,
			Timestamp:       entry.Timestamp,
		}
		if err := tx.Create(&row).Error; err != nil {
			return storageErr("insert location history", err)
		}
		if err := tx.Model(&h).Update("last_updated", entry.Timestamp).Error; err != nil {
			return storageErr("update dealer history", err)
		}
		if err := tx.Model(&models.Dealer{}).Where("id = ?", dealerID).
			Updates(map[string]interface{}{"latitude": entry.Point.Lat, "longitude": entry.Point.Lon}).Error; err != nil {
			return storageErr("update dealer location", err)
		}
		return nil
	})
}

func (g *Gorm) GetOrderStatusEvents(ctx context.Context, orderID *uint) ([]domain.StatusEvent, error) {
	q := g.db.WithContext(ctx).Order("timestamp, id")
	if orderID != nil {
		q = q.Where("order_id = ?", *orderID)
	}
	var rows []models.OrderStatusEvent
	if err := q.Find(&rows).Error; err != nil {
		return nil, storageErr("list order status events", err)
	}
	out := make([]domain.StatusEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.StatusEvent{OrderID: r.OrderID, Status: r.Status, Timestamp: r.Timestamp})
	}
	return out, nil
}

func (g *Gorm) GetEmergencyReport(ctx context.Context, reportID uint) (domain.EmergencyReport, error) {
	var r models.EmergencyReport
	if err := g.db.WithContext(ctx).First(&r, reportID).Error; err != nil {
		return domain.EmergencyReport{}, notFoundOr("get emergency report", err)
	}
	return domain.EmergencyReport{
		ID:       r.ID,
		OrderID:  r.OrderID,
		DealerID: r.DealerID,
		Point:    geo.Point{Lon: r.Longitude, Lat: r.Latitude},
	}, nil
}

func (g *Gorm) dealerExists(ctx context.Context, db *gorm.DB, dealerID uint) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Dealer{}).Where("id = ?", dealerID).Count(&count).Error; err != nil {
		return storageErr("lookup dealer", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}

func toCompany(c models.Company) domain.Company {
	return domain.Company{
		ID:               c.ID,
		Name:             c.Name,
		Email:            c.Email,
		Phone:            c.Phone,
		CoverageAreaIDs:  toUints(c.CoverageAreaIDs),
		PaymentMethodIDs: toUints(c.PaymentMethodIDs),
		Deliveries:       c.Deliveries,
		FailedDeliveries: c.FailedDeliveries,
		TotalSales:       c.TotalSales,
	}
}

func toDealer(r models.Dealer) (domain.Dealer, error) {
	route, err := geo.UnmarshalLineStringWKB(r.MostFrequentRoute)
	if err != nil {
		return domain.Dealer{}, err
	}
	return domain.Dealer{
		ID:                r.ID,
		Name:              r.Name,
		Phone:             r.Phone,
		Location:          geo.Point{Lon: r.Longitude, Lat: r.Latitude},
		Available:         r.Available,
		MostFrequentRoute: route,
		RouteLastUpdated:  r.RouteLastUpdated,
		RouteVersion:      r.RouteVersion,
	}, nil
}

func toUints(ids pq.Int64Array) []uint {
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		out = append(out, uint(id))
	}
	return out
}
