package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"
	"retailer-service/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type retailerFixture struct {
	db    *gorm.DB
	cache cache.Cache
	svc   *RetailerService
	geo   geography
	other geography
	srA   model.SalesRep
	srB   model.SalesRep
	// retailers[0..3] are assigned to srA, retailers[4] to srB only
	retailers []model.Retailer
}

func newRetailerFixture(t *testing.T) *retailerFixture {
	db := newTestDB(t)
	c := newTestCache()
	f := &retailerFixture{
		db:    db,
		cache: c,
		svc:   NewRetailerService(db, c, time.Minute, newTestMetrics(), testLog),
		geo:   seedGeography(t, db, "A"),
		other: seedGeography(t, db, "B"),
		srA:   seedSalesRep(t, db, "sr_a", "secret", model.RoleSalesRep),
		srB:   seedSalesRep(t, db, "sr_b", "secret", model.RoleSalesRep),
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	f.retailers = []model.Retailer{
		seedRetailer(t, db, f.geo, "R0001", "Rahim Store", strPtr("01711000001"), base.Add(1*time.Hour)),
		seedRetailer(t, db, f.geo, "R0002", "Karim Traders", strPtr("01711000002"), base.Add(4*time.Hour)),
		seedRetailer(t, db, f.other, "R0003", "Corner Shop", nil, base.Add(3*time.Hour)),
		seedRetailer(t, db, f.geo, "X100_A", "Big Bazar", strPtr("01899999999"), base.Add(2*time.Hour)),
		seedRetailer(t, db, f.geo, "R0005", "Rahim Brothers", strPtr("01711000005"), base.Add(5*time.Hour)),
	}
	for _, r := range f.retailers[:4] {
		assign(t, db, f.srA.ID, r.ID)
	}
	assign(t, db, f.srB.ID, f.retailers[4].ID)
	return f
}

func uids(page *RetailerPage) []string {
	out := make([]string, 0, len(page.Data))
	for _, item := range page.Data {
		out = append(out, item.UID)
	}
	return out
}

func TestListForSalesRep_ScopeAndOrder(t *testing.T) {
	f := newRetailerFixture(t)

	page, err := f.svc.ListForSalesRep(context.Background(), f.srA.ID, RetailerFilter{})
	require.NoError(t, err)

	assert.Equal(t, []string{"R0002", "R0003", "X100_A", "R0001"}, uids(page))
	assert.Equal(t, PageMeta{Total: 4, Page: 1, Limit: 20, TotalPages: 1}, page.Meta)

	first := page.Data[0]
	require.NotNil(t, first.Region)
	assert.Equal(t, NamedRef{ID: f.geo.region.ID, Name: "Region A"}, *first.Region)
	assert.Equal(t, NamedRef{ID: f.geo.territory.ID, Name: "Territory A"}, *first.Territory)
}

func TestListForSalesRep_NeverLeaksUnassigned(t *testing.T) {
	f := newRetailerFixture(t)
	ctx := context.Background()

	filters := []RetailerFilter{
		{},
		{Search: "rahim"},
		{Search: "R0005"},
		{RegionID: f.geo.region.ID},
		{DistributorID: f.geo.distributor.ID, Limit: 1, Page: 2},
		{Search: "0171", TerritoryID: f.geo.territory.ID},
	}
	for i, filter := range filters {
		t.Run(fmt.Sprintf("filter %d", i), func(t *testing.T) {
			page, err := f.svc.ListForSalesRep(ctx, f.srA.ID, filter)
			require.NoError(t, err)
			assert.NotContains(t, uids(page), "R0005")
		})
	}

	page, err := f.svc.ListForSalesRep(ctx, f.srB.ID, RetailerFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"R0005"}, uids(page))
}

func TestListForSalesRep_Filters(t *testing.T) {
	f := newRetailerFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		filter RetailerFilter
		want   []string
	}{
		{"search name case-insensitive", RetailerFilter{Search: "RAHIM"}, []string{"R0001"}},
		{"search uid", RetailerFilter{Search: "r0003"}, []string{"R0003"}},
		{"search phone", RetailerFilter{Search: "01899"}, []string{"X100_A"}},
		{"underscore is literal", RetailerFilter{Search: "0_A"}, []string{"X100_A"}},
		{"percent is literal", RetailerFilter{Search: "%"}, []string{}},
		{"region", RetailerFilter{RegionID: f.other.region.ID}, []string{"R0003"}},
		{"area", RetailerFilter{AreaID: f.geo.area.ID}, []string{"R0002", "X100_A", "R0001"}},
		{"search and region", RetailerFilter{Search: "r000", RegionID: f.geo.region.ID}, []string{"R0002", "R0001"}},
		{"no match", RetailerFilter{TerritoryID: 9999}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.svc.ListForSalesRep(ctx, f.srA.ID, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, uids(page))
			assert.Equal(t, int64(len(tt.want)), page.Meta.Total)
		})
	}
}

func TestListForSalesRep_Pagination(t *testing.T) {
	f := newRetailerFixture(t)

	page, err := f.svc.ListForSalesRep(context.Background(), f.srA.ID, RetailerFilter{Page: 2, Limit: 3})
	require.NoError(t, err)

	assert.Equal(t, []string{"R0001"}, uids(page))
	assert.Equal(t, PageMeta{Total: 4, Page: 2, Limit: 3, TotalPages: 2}, page.Meta)
}

func TestListForSalesRep_CachedPerFilter(t *testing.T) {
	f := newRetailerFixture(t)
	ctx := context.Background()

	_, err := f.svc.ListForSalesRep(ctx, f.srA.ID, RetailerFilter{})
	require.NoError(t, err)

	// an explicit default and an omitted one share a key
	assert.Equal(t,
		retailerListKey(f.srA.ID, RetailerFilter{}.normalized()),
		retailerListKey(f.srA.ID, RetailerFilter{Page: 1, Limit: 20}.normalized()))

	require.NoError(t, f.db.Model(&model.Retailer{}).Where("id = ?", f.retailers[0].ID).Update("name", "Renamed").Error)

	page, err := f.svc.ListForSalesRep(ctx, f.srA.ID, RetailerFilter{Page: 1, Limit: 20})
	require.NoError(t, err)
	assert.Equal(t, "Rahim Store", page.Data[3].Name, "served from cache")

	raw, err := f.cache.Get(ctx, retailerListKey(f.srA.ID, RetailerFilter{}.normalized()))
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Contains(t, decoded, "meta")
}

func TestGetForSalesRep(t *testing.T) {
	f := newRetailerFixture(t)
	ctx := context.Background()

	got, err := f.svc.GetForSalesRep(ctx, f.retailers[2].ID, f.srA.ID)
	require.NoError(t, err)
	assert.Equal(t, "R0003", got.UID)
	require.NotNil(t, got.Area)
	assert.Equal(t, "Area B", got.Area.Name)
	require.NotNil(t, got.Distributor)

	t.Run("assigned to another sales rep", func(t *testing.T) {
		_, err := f.svc.GetForSalesRep(ctx, f.retailers[4].ID, f.srA.ID)
		require.Error(t, err)
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))
		assert.Equal(t, "Retailer not found or not assigned to you", apperror.PublicMessage(err))
	})

	t.Run("does not exist", func(t *testing.T) {
		_, err := f.svc.GetForSalesRep(ctx, 99999, f.srA.ID)
		assert.Equal(t, "Retailer not found or not assigned to you", apperror.PublicMessage(err))
	})
}

func TestUpdateForSalesRep(t *testing.T) {
	f := newRetailerFixture(t)
	ctx := context.Background()
	target := f.retailers[0]

	_, err := f.svc.ListForSalesRep(ctx, f.srA.ID, RetailerFilter{})
	require.NoError(t, err)
	_, err = f.svc.ListForSalesRep(ctx, f.srA.ID, RetailerFilter{Search: "rahim"})
	require.NoError(t, err)

	points := 150
	updated, err := f.svc.UpdateForSalesRep(ctx, target.ID, f.srA.ID, UpdateRetailerRequest{
		Points: &points,
		Notes:  strPtr("visit on Monday"),
	})
	require.NoError(t, err)
	assert.Equal(t, 150, updated.Points)
	require.NotNil(t, updated.Notes)
	assert.Equal(t, "visit on Monday", *updated.Notes)
	assert.Nil(t, updated.Routes)
	assert.Equal(t, target.Name, updated.Name)
	assert.True(t, updated.UpdatedAt.After(target.UpdatedAt))

	// every cached page for the sales rep was dropped
	for _, filter := range []RetailerFilter{{}, {Search: "rahim"}} {
		_, err := f.cache.Get(ctx, retailerListKey(f.srA.ID, filter.normalized()))
		assert.ErrorIs(t, err, cache.ErrMiss)
	}

	page, err := f.svc.ListForSalesRep(ctx, f.srA.ID, RetailerFilter{})
	require.NoError(t, err)
	assert.Equal(t, "R0001", page.Data[0].UID, "most recently updated first")
	assert.Equal(t, 150, page.Data[0].Points)
}

func TestUpdateForSalesRep_NotAssigned(t *testing.T) {
	f := newRetailerFixture(t)
	points := 1

	_, err := f.svc.UpdateForSalesRep(context.Background(), f.retailers[4].ID, f.srA.ID, UpdateRetailerRequest{Points: &points})
	require.Error(t, err)
	assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

	var r model.Retailer
	require.NoError(t, f.db.First(&r, f.retailers[4].ID).Error)
	assert.Equal(t, 0, r.Points)
}

func TestUpdateForSalesRep_InvalidatesOtherHolders(t *testing.T) {
	f := newRetailerFixture(t)
	ctx := context.Background()
	shared := f.retailers[1]
	assign(t, f.db, f.srB.ID, shared.ID)

	_, err := f.svc.ListForSalesRep(ctx, f.srB.ID, RetailerFilter{})
	require.NoError(t, err)

	_, err = f.svc.UpdateForSalesRep(ctx, shared.ID, f.srA.ID, UpdateRetailerRequest{Routes: strPtr("Route 7")})
	require.NoError(t, err)

	_, err = f.cache.Get(ctx, retailerListKey(f.srB.ID, RetailerFilter{}.normalized()))
	assert.ErrorIs(t, err, cache.ErrMiss)
}
