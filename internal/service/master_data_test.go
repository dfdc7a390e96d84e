package service

import (
	"context"
	"testing"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newMasterDataService(t *testing.T) (*MasterDataService, *gorm.DB) {
	db := newTestDB(t)
	return NewMasterDataService(db, newTestCache(), time.Hour, newTestMetrics(), testLog), db
}

func TestMasterData_CreateThenListIncludesRegion(t *testing.T) {
	svc, _ := newMasterDataService(t)
	ctx := context.Background()

	// warm the cache so the create has something to invalidate
	regions, err := svc.ListRegions(ctx)
	require.NoError(t, err)
	assert.Empty(t, regions)

	created, err := svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)

	regions, err = svc.ListRegions(ctx)
	require.NoError(t, err)
	require.Len(t, regions, 1)
	assert.Equal(t, "Dhaka", regions[0].Name)
}

func TestMasterData_ListIsCachedUntilWrite(t *testing.T) {
	svc, db := newMasterDataService(t)
	ctx := context.Background()

	_, err := svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.NoError(t, err)
	_, err = svc.ListRegions(ctx)
	require.NoError(t, err)

	// a write that bypasses the service is not visible while the cache holds
	require.NoError(t, db.Create(&model.Region{Name: "Sylhet"}).Error)
	regions, err := svc.ListRegions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, 1)

	_, err = svc.CreateRegion(ctx, RegionRequest{Name: "Chittagong"})
	require.NoError(t, err)
	regions, err = svc.ListRegions(ctx)
	require.NoError(t, err)
	assert.Len(t, regions, 3)
}

func TestMasterData_ListOrderedByName(t *testing.T) {
	svc, _ := newMasterDataService(t)
	ctx := context.Background()

	for _, name := range []string{"Khulna", "Chittagong", "Dhaka"} {
		_, err := svc.CreateDistributor(ctx, DistributorRequest{Name: name})
		require.NoError(t, err)
	}

	distributors, err := svc.ListDistributors(ctx)
	require.NoError(t, err)
	require.Len(t, distributors, 3)
	assert.Equal(t, "Chittagong", distributors[0].Name)
	assert.Equal(t, "Dhaka", distributors[1].Name)
	assert.Equal(t, "Khulna", distributors[2].Name)
}

func TestMasterData_DuplicateNameConflicts(t *testing.T) {
	svc, _ := newMasterDataService(t)
	ctx := context.Background()

	_, err := svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.NoError(t, err)

	_, err = svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.Error(t, err)
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	other, err := svc.CreateRegion(ctx, RegionRequest{Name: "Sylhet"})
	require.NoError(t, err)
	_, err = svc.UpdateRegion(ctx, other.ID, RegionRequest{Name: "Dhaka"})
	assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	// renaming a row to its own name is not a conflict
	_, err = svc.UpdateRegion(ctx, other.ID, RegionRequest{Name: "Sylhet"})
	assert.NoError(t, err)
}

func TestMasterData_AreaAndTerritoryEmbedParents(t *testing.T) {
	svc, _ := newMasterDataService(t)
	ctx := context.Background()

	region, err := svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.NoError(t, err)

	area, err := svc.CreateArea(ctx, AreaRequest{Name: "Gulshan", RegionID: region.ID})
	require.NoError(t, err)
	require.NotNil(t, area.Region)
	assert.Equal(t, "Dhaka", area.Region.Name)

	territory, err := svc.CreateTerritory(ctx, TerritoryRequest{Name: "Territory 1", AreaID: area.ID})
	require.NoError(t, err)
	require.NotNil(t, territory.Area)
	require.NotNil(t, territory.Area.Region)
	assert.Equal(t, "Gulshan", territory.Area.Name)
	assert.Equal(t, "Dhaka", territory.Area.Region.Name)

	territories, err := svc.ListTerritories(ctx)
	require.NoError(t, err)
	require.Len(t, territories, 1)
	require.NotNil(t, territories[0].Area)
	assert.Equal(t, "Dhaka", territories[0].Area.Region.Name)

	// cached copy keeps the nested relations
	territories, err = svc.ListTerritories(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Dhaka", territories[0].Area.Region.Name)
}

func TestMasterData_UpdateAreaMovesRegion(t *testing.T) {
	svc, _ := newMasterDataService(t)
	ctx := context.Background()

	dhaka, err := svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.NoError(t, err)
	ctg, err := svc.CreateRegion(ctx, RegionRequest{Name: "Chittagong"})
	require.NoError(t, err)
	area, err := svc.CreateArea(ctx, AreaRequest{Name: "Central", RegionID: dhaka.ID})
	require.NoError(t, err)

	updated, err := svc.UpdateArea(ctx, area.ID, AreaRequest{Name: "Central", RegionID: ctg.ID})
	require.NoError(t, err)
	assert.Equal(t, ctg.ID, updated.RegionID)
	require.NotNil(t, updated.Region)
	assert.Equal(t, "Chittagong", updated.Region.Name)
}

func TestMasterData_MissingParentIsValidationError(t *testing.T) {
	svc, _ := newMasterDataService(t)
	ctx := context.Background()

	_, err := svc.CreateArea(ctx, AreaRequest{Name: "Gulshan", RegionID: 999})
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
	assert.Equal(t, "Region not found", apperror.PublicMessage(err))

	_, err = svc.CreateTerritory(ctx, TerritoryRequest{Name: "T1", AreaID: 999})
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}

func TestMasterData_Delete(t *testing.T) {
	svc, db := newMasterDataService(t)
	ctx := context.Background()

	region, err := svc.CreateRegion(ctx, RegionRequest{Name: "Dhaka"})
	require.NoError(t, err)
	area, err := svc.CreateArea(ctx, AreaRequest{Name: "Gulshan", RegionID: region.ID})
	require.NoError(t, err)

	t.Run("referenced row conflicts", func(t *testing.T) {
		_, err := svc.DeleteRegion(ctx, region.ID)
		require.Error(t, err)
		assert.Equal(t, apperror.KindConflict, apperror.KindOf(err))

		var n int64
		require.NoError(t, db.Model(&model.Region{}).Count(&n).Error)
		assert.Equal(t, int64(1), n)
	})

	t.Run("unreferenced row is removed", func(t *testing.T) {
		_, err := svc.ListAreas(ctx)
		require.NoError(t, err)

		res, err := svc.DeleteArea(ctx, area.ID)
		require.NoError(t, err)
		assert.Equal(t, "Area deleted", res.Message)

		areas, err := svc.ListAreas(ctx)
		require.NoError(t, err)
		assert.Empty(t, areas)

		res, err = svc.DeleteRegion(ctx, region.ID)
		require.NoError(t, err)
		assert.Equal(t, "Region deleted", res.Message)
	})

	t.Run("missing row is not found", func(t *testing.T) {
		_, err := svc.DeleteDistributor(ctx, 12345)
		assert.Equal(t, apperror.KindNotFound, apperror.KindOf(err))

		_, err = svc.UpdateTerritory(ctx, 12345, TerritoryRequest{Name: "x", AreaID: area.ID})
		assert.Error(t, err)
	})
}
