package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"
	"retailer-service/pkg/cache"
	"retailer-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// RegionRequest is the create/update body for a Region
type RegionRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// AreaRequest is the create/update body for an Area
type AreaRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	RegionID uint   `json:"regionId" validate:"required"`
}

// DistributorRequest is the create/update body for a Distributor
type DistributorRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

// TerritoryRequest is the create/update body for a Territory
type TerritoryRequest struct {
	Name   string `json:"name" validate:"required,max=255"`
	AreaID uint   `json:"areaId" validate:"required"`
}

// childRef is a table whose column points at a master data row
type childRef struct {
	model  interface{}
	column string
	label  string
}

// entitySet describes one master data table
type entitySet struct {
	name     string
	family   string
	cacheKey string
	model    interface{}
	preloads []string
	children []childRef
}

var (
	regionSet = entitySet{
		name:     "Region",
		family:   "regions",
		cacheKey: "regions:all",
		model:    &model.Region{},
		children: []childRef{
			{&model.Area{}, "region_id", "areas"},
			{&model.Retailer{}, "region_id", "retailers"},
		},
	}
	areaSet = entitySet{
		name:     "Area",
		family:   "areas",
		cacheKey: "areas:all",
		model:    &model.Area{},
		preloads: []string{"Region"},
		children: []childRef{
			{&model.Territory{}, "area_id", "territories"},
			{&model.Retailer{}, "area_id", "retailers"},
		},
	}
	distributorSet = entitySet{
		name:     "Distributor",
		family:   "distributors",
		cacheKey: "distributors:all",
		model:    &model.Distributor{},
		children: []childRef{
			{&model.Retailer{}, "distributor_id", "retailers"},
		},
	}
	territorySet = entitySet{
		name:     "Territory",
		family:   "territories",
		cacheKey: "territories:all",
		model:    &model.Territory{},
		preloads: []string{"Area.Region"},
		children: []childRef{
			{&model.Retailer{}, "territory_id", "retailers"},
		},
	}
)

// MasterDataService manages regions, areas, distributors and territories.
// Lists are cache-aside under "<entity>:all"; every write drops that key.
type MasterDataService struct {
	db      *gorm.DB
	cache   cache.Cache
	ttl     time.Duration
	metrics *prometheus.Metrics
	log     *zap.Logger
}

// NewMasterDataService creates a MasterDataService; ttl is the list cache expiry
func NewMasterDataService(db *gorm.DB, c cache.Cache, ttl time.Duration, metrics *prometheus.Metrics, log *zap.Logger) *MasterDataService {
	return &MasterDataService{db: db, cache: c, ttl: ttl, metrics: metrics, log: log}
}

// Regions

func (s *MasterDataService) CreateRegion(ctx context.Context, req RegionRequest) (*model.Region, error) {
	if err := s.ensureUnique(ctx, regionSet, 0, map[string]interface{}{"name": req.Name}); err != nil {
		return nil, err
	}
	return createEntity(ctx, s, regionSet, &model.Region{Name: req.Name})
}

func (s *MasterDataService) ListRegions(ctx context.Context) ([]model.Region, error) {
	return listEntities[model.Region](ctx, s, regionSet)
}

func (s *MasterDataService) UpdateRegion(ctx context.Context, id uint, req RegionRequest) (*model.Region, error) {
	if err := s.ensureUnique(ctx, regionSet, id, map[string]interface{}{"name": req.Name}); err != nil {
		return nil, err
	}
	return updateEntity[model.Region](ctx, s, regionSet, id, map[string]interface{}{"name": req.Name})
}

func (s *MasterDataService) DeleteRegion(ctx context.Context, id uint) (*MessageResponse, error) {
	return deleteEntity[model.Region](ctx, s, regionSet, id)
}

// Areas

func (s *MasterDataService) CreateArea(ctx context.Context, req AreaRequest) (*model.Area, error) {
	if err := s.ensureExists(ctx, &model.Region{}, req.RegionID, "Region"); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, areaSet, 0, map[string]interface{}{"name": req.Name, "region_id": req.RegionID}); err != nil {
		return nil, err
	}
	return createEntity(ctx, s, areaSet, &model.Area{Name: req.Name, RegionID: req.RegionID})
}

func (s *MasterDataService) ListAreas(ctx context.Context) ([]model.Area, error) {
	return listEntities[model.Area](ctx, s, areaSet)
}

func (s *MasterDataService) UpdateArea(ctx context.Context, id uint, req AreaRequest) (*model.Area, error) {
	if err := s.ensureExists(ctx, &model.Region{}, req.RegionID, "Region"); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, areaSet, id, map[string]interface{}{"name": req.Name, "region_id": req.RegionID}); err != nil {
		return nil, err
	}
	return updateEntity[model.Area](ctx, s, areaSet, id, map[string]interface{}{
		"name":      req.Name,
		"region_id": req.RegionID,
	})
}

func (s *MasterDataService) DeleteArea(ctx context.Context, id uint) (*MessageResponse, error) {
	return deleteEntity[model.Area](ctx, s, areaSet, id)
}

// Distributors

func (s *MasterDataService) CreateDistributor(ctx context.Context, req DistributorRequest) (*model.Distributor, error) {
	if err := s.ensureUnique(ctx, distributorSet, 0, map[string]interface{}{"name": req.Name}); err != nil {
		return nil, err
	}
	return createEntity(ctx, s, distributorSet, &model.Distributor{Name: req.Name})
}

func (s *MasterDataService) ListDistributors(ctx context.Context) ([]model.Distributor, error) {
	return listEntities[model.Distributor](ctx, s, distributorSet)
}

func (s *MasterDataService) UpdateDistributor(ctx context.Context, id uint, req DistributorRequest) (*model.Distributor, error) {
	if err := s.ensureUnique(ctx, distributorSet, id, map[string]interface{}{"name": req.Name}); err != nil {
		return nil, err
	}
	return updateEntity[model.Distributor](ctx, s, distributorSet, id, map[string]interface{}{"name": req.Name})
}

func (s *MasterDataService) DeleteDistributor(ctx context.Context, id uint) (*MessageResponse, error) {
	return deleteEntity[model.Distributor](ctx, s, distributorSet, id)
}

// Territories

func (s *MasterDataService) CreateTerritory(ctx context.Context, req TerritoryRequest) (*model.Territory, error) {
	if err := s.ensureExists(ctx, &model.Area{}, req.AreaID, "Area"); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, territorySet, 0, map[string]interface{}{"name": req.Name, "area_id": req.AreaID}); err != nil {
		return nil, err
	}
	return createEntity(ctx, s, territorySet, &model.Territory{Name: req.Name, AreaID: req.AreaID})
}

func (s *MasterDataService) ListTerritories(ctx context.Context) ([]model.Territory, error) {
	return listEntities[model.Territory](ctx, s, territorySet)
}

func (s *MasterDataService) UpdateTerritory(ctx context.Context, id uint, req TerritoryRequest) (*model.Territory, error) {
	if err := s.ensureExists(ctx, &model.Area{}, req.AreaID, "Area"); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, territorySet, id, map[string]interface{}{"name": req.Name, "area_id": req.AreaID}); err != nil {
		return nil, err
	}
	return updateEntity[model.Territory](ctx, s, territorySet, id, map[string]interface{}{
		"name":    req.Name,
		"area_id": req.AreaID,
	})
}

func (s *MasterDataService) DeleteTerritory(ctx context.Context, id uint) (*MessageResponse, error) {
	return deleteEntity[model.Territory](ctx, s, territorySet, id)
}

// ensureUnique fails with Conflict when another row (other than excludeID) matches conds
func (s *MasterDataService) ensureUnique(ctx context.Context, set entitySet, excludeID uint, conds map[string]interface{}) error {
	var count int64
	q := s.db.WithContext(ctx).Model(set.model).Where(conds)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return fromDB(err, set.name)
	}
	if count > 0 {
		return apperror.Conflict(fmt.Sprintf("%s with this name already exists", set.name), nil)
	}
	return nil
}

// ensureExists fails with Validation when the referenced parent row is missing
func (s *MasterDataService) ensureExists(ctx context.Context, m interface{}, id uint, name string) error {
	var count int64
	if err := s.db.WithContext(ctx).Model(m).Where("id = ?", id).Count(&count).Error; err != nil {
		return fromDB(err, name)
	}
	if count == 0 {
		return apperror.Validation("%s not found", name)
	}
	return nil
}

func (s *MasterDataService) invalidate(ctx context.Context, set entitySet) error {
	if err := s.cache.Delete(ctx, set.cacheKey); err != nil {
		s.log.Error("Failed to invalidate master data cache",
			zap.String("key", set.cacheKey),
			zap.Error(err))
		return apperror.Internal(err, "invalidate %s", set.cacheKey)
	}
	return nil
}

func (s *MasterDataService) withPreloads(ctx context.Context, set entitySet) *gorm.DB {
	q := s.db.WithContext(ctx)
	for _, p := range set.preloads {
		q = q.Preload(p)
	}
	return q
}

func listEntities[T any](ctx context.Context, s *MasterDataService, set entitySet) ([]T, error) {
	var cached []T
	hit, err := cache.GetJSON(ctx, s.cache, set.cacheKey, &cached)
	if err != nil {
		return nil, apperror.Internal(err, "read %s", set.cacheKey)
	}
	s.metrics.RecordCacheLookup(set.family, hit)
	if hit {
		return cached, nil
	}

	defer s.metrics.TrackDBOperation("select")(time.Now())
	items := []T{}
	if err := s.withPreloads(ctx, set).Order("name ASC").Find(&items).Error; err != nil {
		return nil, fromDB(err, set.name)
	}

	if err := cache.SetJSON(ctx, s.cache, set.cacheKey, items, s.ttl); err != nil {
		return nil, apperror.Internal(err, "write %s", set.cacheKey)
	}
	return items, nil
}

func createEntity[T any](ctx context.Context, s *MasterDataService, set entitySet, entity *T) (*T, error) {
	defer s.metrics.TrackDBOperation("insert")(time.Now())
	if err := s.db.WithContext(ctx).Create(entity).Error; err != nil {
		return nil, fromDB(err, set.name)
	}

	created := entity
	if len(set.preloads) > 0 {
		var reloaded T
		if err := s.withPreloads(ctx, set).Where("id = ?", primaryKey(entity)).First(&reloaded).Error; err != nil {
			return nil, fromDB(err, set.name)
		}
		created = &reloaded
	}

	if err := s.invalidate(ctx, set); err != nil {
		return nil, err
	}
	s.metrics.RecordMasterDataOperation(set.family, "create")
	s.log.Info(set.name+" created", zap.Uint("id", primaryKey(created)))
	return created, nil
}

func updateEntity[T any](ctx context.Context, s *MasterDataService, set entitySet, id uint, changes map[string]interface{}) (*T, error) {
	defer s.metrics.TrackDBOperation("update")(time.Now())
	db := s.db.WithContext(ctx)

	var existing T
	if err := db.Where("id = ?", id).First(&existing).Error; err != nil {
		return nil, fromDB(err, set.name)
	}
	if err := db.Model(&existing).Updates(changes).Error; err != nil {
		return nil, fromDB(err, set.name)
	}

	var updated T
	if err := s.withPreloads(ctx, set).Where("id = ?", id).First(&updated).Error; err != nil {
		return nil, fromDB(err, set.name)
	}

	if err := s.invalidate(ctx, set); err != nil {
		return nil, err
	}
	s.metrics.RecordMasterDataOperation(set.family, "update")
	s.log.Info(set.name+" updated", zap.Uint("id", id))
	return &updated, nil
}

func deleteEntity[T any](ctx context.Context, s *MasterDataService, set entitySet, id uint) (*MessageResponse, error) {
	defer s.metrics.TrackDBOperation("delete")(time.Now())
	db := s.db.WithContext(ctx)

	var existing T
	if err := db.Where("id = ?", id).First(&existing).Error; err != nil {
		return nil, fromDB(err, set.name)
	}

	for _, child := range set.children {
		var count int64
		if err := db.Model(child.model).Where(child.column+" = ?", id).Count(&count).Error; err != nil {
			return nil, fromDB(err, set.name)
		}
		if count > 0 {
			return nil, apperror.Conflict(
				fmt.Sprintf("%s is still referenced by %d %s", set.name, count, child.label), nil)
		}
	}

	if err := db.Delete(&existing).Error; err != nil {
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, apperror.Conflict(set.name+" is still referenced", err)
		}
		return nil, fromDB(err, set.name)
	}

	if err := s.invalidate(ctx, set); err != nil {
		return nil, err
	}
	s.metrics.RecordMasterDataOperation(set.family, "delete")
	s.log.Info(set.name+" deleted", zap.Uint("id", id))
	return &MessageResponse{Message: set.name + " deleted"}, nil
}

// primaryKey reads the ID of any master data model
func primaryKey(entity interface{}) uint {
	switch e := entity.(type) {
	case *model.Region:
		return e.ID
	case *model.Area:
		return e.ID
	case *model.Distributor:
		return e.ID
	case *model.Territory:
		return e.ID
	case *model.Retailer:
		return e.ID
	default:
		return 0
	}
}
