package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"dealer_tracker/internal/domain"
	"dealer_tracker/internal/geo"
	"dealer_tracker/internal/models"
)

var errWriteRefused = errors.New("write refused")

// newSQLGorm runs the gorm store against a throwaway SQLite file so the
// conditional updates and transactions hit a real SQL engine.
func newSQLGorm(t *testing.T) (*Gorm, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "tracker.db")), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&models.Dealer{},
		&models.DealerHistory{},
		&models.LocationHistory{},
		&models.Order{},
	))
	return NewGorm(db), db
}

func seedDealer(t *testing.T, db *gorm.DB, id uint, at geo.Point) {
	t.Helper()
	require.NoError(t, db.Create(&models.Dealer{
		Model:     gorm.Model{ID: id},
		UserID:    100 + id,
		Name:      "dealer",
		Latitude:  at.Lat,
		Longitude: at.Lon,
		Available: true,
	}).Error)
}

// refuseWrites fails every create or update on table while the returned flag is set.
func refuseWrites(t *testing.T, db *gorm.DB, table string) *bool {
	t.Helper()
	on := new(bool)
	hook := func(tx *gorm.DB) {
		if *on && tx.Statement.Table == table {
			tx.AddError(errWriteRefused)
		}
	}
	require.NoError(t, db.Callback().Create().Before("gorm:create").Register("test:refuse_create_"+table, hook))
	require.NoError(t, db.Callback().Update().Before("gorm:update").Register("test:refuse_update_"+table, hook))
	return on
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestGormSwapDealerRouteIsConditional(t *testing.T) {
	ctx := context.Background()
	g, db := newSQLGorm(t)
	seedDealer(t, db, 1, geo.Point{Lon: 36.80, Lat: -1.30})

	first := geo.LineString{{Lon: 36.80, Lat: -1.30}, {Lon: 36.81, Lat: -1.29}}
	second := geo.LineString{{Lon: 36.80, Lat: -1.30}, {Lon: 36.85, Lat: -1.25}}

	ok, err := g.SwapDealerRoute(ctx, 1, 0, first, t0)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = g.SwapDealerRoute(ctx, 1, 0, second, t0.Add(time.Hour))
	require.NoError(t, err, "a stale version on a live dealer is a lost race, not an error")
	assert.False(t, ok)

	d, err := g.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(1), d.RouteVersion)
	assert.Equal(t, first, d.MostFrequentRoute, "stale swap leaves the stored route alone")
	require.NotNil(t, d.RouteLastUpdated)
	assert.True(t, t0.Equal(*d.RouteLastUpdated), "stale swap leaves the timestamp alone")

	ok, err = g.SwapDealerRoute(ctx, 1, 1, second, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, ok)
	d, err = g.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(2), d.RouteVersion)
	assert.Equal(t, second, d.MostFrequentRoute)

	ok, err = g.SwapDealerRoute(ctx, 9, 0, first, t0)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, ok)
}

func TestGormAppendDealerHistory(t *testing.T) {
	ctx := context.Background()
	g, db := newSQLGorm(t)
	seedDealer(t, db, 1, geo.Point{Lon: 36.70, Lat: -1.20})

	p1 := geo.Point{Lon: 36.80, Lat: -1.30}
	p2 := geo.Point{Lon: 36.81, Lat: -1.29}
	orderID := uint(5)
	require.NoError(t, g.AppendDealerHistory(ctx, 1, domain.LocationEntry{Point: p1, Timestamp: t0}))
	require.NoError(t, g.AppendDealerHistory(ctx, 1, domain.LocationEntry{Point: p2, Timestamp: t0.Add(time.Minute), OrderID: &orderID}))

	h, err := g.GetDealerHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, h.Entries, 2)
	assert.Equal(t, p1, h.Entries[0].Point)
	assert.Nil(t, h.Entries[0].OrderID)
	assert.Equal(t, p2, h.Entries[1].Point)
	require.NotNil(t, h.Entries[1].OrderID)
	assert.Equal(t, orderID, *h.Entries[1].OrderID)
	assert.True(t, t0.Add(time.Minute).Equal(h.LastUpdated))
	assert.Equal(t, int64(1), count(t, db, &models.DealerHistory{}), "one header per dealer")

	d, err := g.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p2, d.Location)

	assert.ErrorIs(t, g.AppendDealerHistory(ctx, 9, domain.LocationEntry{Point: p1, Timestamp: t0}), ErrNotFound)
	assert.Equal(t, int64(2), count(t, db, &models.LocationHistory{}))
}

func TestGormAppendRollsBackFailedInsert(t *testing.T) {
	ctx := context.Background()
	g, db := newSQLGorm(t)
	home := geo.Point{Lon: 36.70, Lat: -1.20}
	seedDealer(t, db, 1, home)
	refuse := refuseWrites(t, db, "location_histories")
	*refuse = true

	err := g.AppendDealerHistory(ctx, 1, domain.LocationEntry{Point: geo.Point{Lon: 36.80, Lat: -1.30}, Timestamp: t0})
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, errWriteRefused)

	assert.Zero(t, count(t, db, &models.DealerHistory{}), "header created in the failed transaction is rolled back")
	assert.Zero(t, count(t, db, &models.LocationHistory{}))
	_, err = g.GetDealerHistory(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	d, err := g.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, home, d.Location)
}

func TestGormAppendRollsBackHeaderBump(t *testing.T) {
	ctx := context.Background()
	g, db := newSQLGorm(t)
	seedDealer(t, db, 1, geo.Point{Lon: 36.70, Lat: -1.20})
	refuse := refuseWrites(t, db, "dealers")

	p1 := geo.Point{Lon: 36.80, Lat: -1.30}
	require.NoError(t, g.AppendDealerHistory(ctx, 1, domain.LocationEntry{Point: p1, Timestamp: t0}))

	// the dealer move is the last write, so the insert and the header bump before it must unwind
	*refuse = true
	err := g.AppendDealerHistory(ctx, 1, domain.LocationEntry{Point: geo.Point{Lon: 36.90, Lat: -1.10}, Timestamp: t0.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrStorage)
	*refuse = false

	h, err := g.GetDealerHistory(ctx, 1)
	require.NoError(t, err)
	require.Len(t, h.Entries, 1)
	assert.Equal(t, p1, h.Entries[0].Point)
	assert.True(t, t0.Equal(h.LastUpdated), "last_updated keeps the committed ping")

	d, err := g.GetDealer(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, p1, d.Location)
}

func TestGormCompletedOrderRoutes(t *testing.T) {
	ctx := context.Background()
	g, db := newSQLGorm(t)
	seedDealer(t, db, 1, geo.Point{})
	seedDealer(t, db, 2, geo.Point{})

	route := geo.LineString{{Lon: 36.80, Lat: -1.30}, {Lon: 36.81, Lat: -1.29}}
	b, err := geo.MarshalLineStringWKB(route)
	require.NoError(t, err)
	delivered := t0.Add(2 * time.Hour)

	require.NoError(t, db.Create(&[]models.Order{
		{Model: gorm.Model{ID: 3}, DealerID: 1, Status: StatusCompleted, EstimatedRoute: b, DeliveryDate: &delivered},
		{Model: gorm.Model{ID: 1}, DealerID: 1, Status: StatusCompleted, EstimatedRoute: b},
		{Model: gorm.Model{ID: 2}, DealerID: 1, Status: "cancelled", EstimatedRoute: b},
		{Model: gorm.Model{ID: 4}, DealerID: 1, Status: "in_transit", EstimatedRoute: b},
		{Model: gorm.Model{ID: 5}, DealerID: 1, Status: StatusCompleted},
		{Model: gorm.Model{ID: 6}, DealerID: 2, Status: StatusCompleted, EstimatedRoute: b},
	}).Error)

	routes, err := g.GetCompletedOrderRoutes(ctx, 1)
	require.NoError(t, err)
	require.Len(t, routes, 2, "only completed orders with a route count")
	assert.Equal(t, uint(1), routes[0].OrderID)
	assert.Equal(t, uint(3), routes[1].OrderID)
	assert.Equal(t, route, routes[1].Route)
	assert.True(t, delivered.Equal(routes[1].CompletedAt), "delivery date wins")
	assert.False(t, routes[0].CompletedAt.IsZero(), "falls back to updated_at")

	other, err := g.GetCompletedOrderRoutes(ctx, 2)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, uint(6), other[0].OrderID)

	_, err = g.GetCompletedOrderRoutes(ctx, 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotFoundOr(t *testing.T) {
	assert.Equal(t, ErrNotFound, notFoundOr("get dealer", gorm.ErrRecordNotFound))

	cause := errors.New("connection refused")
	err := notFoundOr("get dealer", cause)
	assert.ErrorIs(t, err, ErrStorage)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "get dealer")
}

func TestToDealerDecodesRoute(t *testing.T) {
	route := geo.LineString{{Lon: 36.8, Lat: -1.3}, {Lon: 36.9, Lat: -1.2}}
	b, err := geo.MarshalLineStringWKB(route)
	require.NoError(t, err)
	stamp := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

	row := models.Dealer{
		Model:             gorm.Model{ID: 3},
		Name:              "Chege",
		Latitude:          -1.25,
		Longitude:         36.85,
		Available:         true,
		MostFrequentRoute: b,
		RouteLastUpdated:  &stamp,
		RouteVersion:      4,
	}
	d, err := toDealer(row)
	require.NoError(t, err)
	assert.Equal(t, uint(3), d.ID)
	assert.Equal(t, geo.Point{Lon: 36.85, Lat: -1.25}, d.Location)
	assert.Equal(t, route, d.MostFrequentRoute)
	assert.Equal(t, uint(4), d.RouteVersion)

	empty, err := toDealer(models.Dealer{Model: gorm.Model{ID: 4}})
	require.NoError(t, err)
	assert.Nil(t, empty.MostFrequentRoute)
	assert.Nil(t, empty.RouteLastUpdated)

	_, err = toDealer(models.Dealer{MostFrequentRoute: []byte{0x01, 0x02}})
	assert.ErrorIs(t, err, geo.ErrInvalidGeometry)
}

func TestToCompany(t *testing.T) {
	c := toCompany(models.Company{
		Model:           gorm.Model{ID: 9},
		Name:            "Haraka",
		CoverageAreaIDs: pq.Int64Array{3, 1},
	})
	assert.Equal(t, uint(9), c.ID)
	assert.Equal(t, []uint{3, 1}, c.CoverageAreaIDs)
	assert.Empty(t, c.PaymentMethodIDs)
}
