package service

import (
	"testing"
	"time"

	"retailer-service/internal/model"
	"retailer-service/internal/testutil"
	"retailer-service/pkg/cache"
	"retailer-service/pkg/config"
	"retailer-service/pkg/jwtutil"
	"retailer-service/prometheus"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	return testutil.NewDB(t)
}

func newTestMetrics() *prometheus.Metrics {
	return prometheus.NewMetrics("test", promclient.NewRegistry())
}

type geography struct {
	region      model.Region
	area        model.Area
	distributor model.Distributor
	territory   model.Territory
}

func seedGeography(t *testing.T, db *gorm.DB, suffix string) geography {
	t.Helper()
	g := geography{
		region:      model.Region{Name: "Region " + suffix},
		distributor: model.Distributor{Name: "Distributor " + suffix},
	}
	require.NoError(t, db.Create(&g.region).Error)
	require.NoError(t, db.Create(&g.distributor).Error)
	g.area = model.Area{Name: "Area " + suffix, RegionID: g.region.ID}
	require.NoError(t, db.Create(&g.area).Error)
	g.territory = model.Territory{Name: "Territory " + suffix, AreaID: g.area.ID}
	require.NoError(t, db.Create(&g.territory).Error)
	return g
}

func seedRetailer(t *testing.T, db *gorm.DB, g geography, uid, name string, phone *string, updatedAt time.Time) model.Retailer {
	t.Helper()
	r := model.Retailer{
		UID:           uid,
		Name:          name,
		Phone:         phone,
		RegionID:      g.region.ID,
		AreaID:        g.area.ID,
		DistributorID: g.distributor.ID,
		TerritoryID:   g.territory.ID,
		CreatedAt:     updatedAt,
		UpdatedAt:     updatedAt,
	}
	require.NoError(t, db.Create(&r).Error)
	return r
}

func seedSalesRep(t *testing.T, db *gorm.DB, username, password string, role model.Role) model.SalesRep {
	t.Helper()
	hash, err := HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	sr := model.SalesRep{Username: username, Name: "User " + username, PasswordHash: hash, Role: role}
	require.NoError(t, db.Create(&sr).Error)
	return sr
}

func assign(t *testing.T, db *gorm.DB, salesRepID uint, retailerIDs ...uint) {
	t.Helper()
	for _, id := range retailerIDs {
		require.NoError(t, db.Create(&model.SalesRepRetailer{SalesRepID: salesRepID, RetailerID: id}).Error)
	}
}

func countAssignments(t *testing.T, db *gorm.DB, salesRepID uint) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.SalesRepRetailer{}).Where("sales_rep_id = ?", salesRepID).Count(&n).Error)
	return n
}

func strPtr(s string) *string { return &s }

func newTestJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&config.JWTConfig{SigningKey: "test-signing-key", ExpirationHours: 1})
}

func newTestCache() cache.Cache {
	return cache.NewMemoryCache(time.Minute)
}

var testLog = zap.NewNop()
