package service

import (
	"context"
	"strings"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"
	"retailer-service/pkg/cache"
	"retailer-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	defaultPage  = 1
	defaultLimit = 20

	notAssignedMessage = "Retailer not found or not assigned to you"
)

// RetailerFilter is the query for a sales rep's retailer listing. Zero ids mean "any".
type RetailerFilter struct {
	Page          int    `query:"page" json:"page" validate:"omitempty,min=1"`
	Limit         int    `query:"limit" json:"limit" validate:"omitempty,min=1"`
	Search        string `query:"search" json:"search,omitempty" validate:"max=255"`
	RegionID      uint   `query:"regionId" json:"regionId,omitempty"`
	AreaID        uint   `query:"areaId" json:"areaId,omitempty"`
	DistributorID uint   `query:"distributorId" json:"distributorId,omitempty"`
	TerritoryID   uint   `query:"territoryId" json:"territoryId,omitempty"`
}

func (f RetailerFilter) normalized() RetailerFilter {
	if f.Page < 1 {
		f.Page = defaultPage
	}
	if f.Limit < 1 {
		f.Limit = defaultLimit
	}
	f.Search = strings.TrimSpace(f.Search)
	return f
}

// NamedRef is the id and name of a related master data row
type NamedRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// RetailerListItem is a retailer with its relations reduced to id and name
type RetailerListItem struct {
	model.Retailer
	Region      *NamedRef `json:"region"`
	Area        *NamedRef `json:"area"`
	Distributor *NamedRef `json:"distributor"`
	Territory   *NamedRef `json:"territory"`
}

// PageMeta describes the slice of results returned
type PageMeta struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"totalPages"`
}

// RetailerPage is one page of a sales rep's retailers
type RetailerPage struct {
	Data []RetailerListItem `json:"data"`
	Meta PageMeta           `json:"meta"`
}

// UpdateRetailerRequest carries the fields a sales rep may change. Nil fields are left alone.
type UpdateRetailerRequest struct {
	Points *int    `json:"points"`
	Routes *string `json:"routes"`
	Notes  *string `json:"notes"`
}

// RetailerService answers a sales rep's reads and updates, always scoped to the
// retailers assigned to that sales rep.
type RetailerService struct {
	db       *gorm.DB
	listings listingCache
	metrics  *prometheus.Metrics
	log      *zap.Logger
}

// NewRetailerService creates a RetailerService; ttl is the listing cache expiry
func NewRetailerService(db *gorm.DB, c cache.Cache, ttl time.Duration, metrics *prometheus.Metrics, log *zap.Logger) *RetailerService {
	return &RetailerService{
		db:       db,
		listings: listingCache{cache: c, ttl: ttl, log: log},
		metrics:  metrics,
		log:      log,
	}
}

// assignedTo restricts a retailer query to rows assigned to salesRepID
func assignedTo(salesRepID uint) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		assigned := db.Session(&gorm.Session{NewDB: true}).
			Model(&model.SalesRepRetailer{}).
			Select("retailer_id").
			Where("sales_rep_id = ?", salesRepID)
		return db.Where("retailers.id IN (?)", assigned)
	}
}

func matchingFilter(f RetailerFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f.Search != "" {
			pattern := "%" + escapeLike(strings.ToLower(f.Search)) + "%"
			db = db.Where(
				`(LOWER(retailers.name) LIKE ? ESCAPE '\' OR LOWER(retailers.uid) LIKE ? ESCAPE '\' OR LOWER(retailers.phone) LIKE ? ESCAPE '\')`,
				pattern, pattern, pattern)
		}
		if f.RegionID != 0 {
			db = db.Where("retailers.region_id = ?", f.RegionID)
		}
		if f.AreaID != 0 {
			db = db.Where("retailers.area_id = ?", f.AreaID)
		}
		if f.DistributorID != 0 {
			db = db.Where("retailers.distributor_id = ?", f.DistributorID)
		}
		if f.TerritoryID != 0 {
			db = db.Where("retailers.territory_id = ?", f.TerritoryID)
		}
		return db
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func selectIDName(db *gorm.DB) *gorm.DB {
	return db.Select("id", "name")
}

// ListForSalesRep returns a page of the retailers assigned to salesRepID, most recently updated first
func (s *RetailerService) ListForSalesRep(ctx context.Context, salesRepID uint, filter RetailerFilter) (*RetailerPage, error) {
	f := filter.normalized()
	key := retailerListKey(salesRepID, f)

	var cached RetailerPage
	hit, err := cache.GetJSON(ctx, s.listings.cache, key, &cached)
	if err != nil {
		return nil, apperror.Internal(err, "read %s", key)
	}
	s.metrics.RecordCacheLookup("retailers", hit)
	if hit {
		return &cached, nil
	}

	defer s.metrics.TrackDBOperation("select")(time.Now())
	db := s.db.WithContext(ctx)

	var total int64
	if err := db.Model(&model.Retailer{}).
		Scopes(assignedTo(salesRepID), matchingFilter(f)).
		Count(&total).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}

	var retailers []model.Retailer
	if err := db.Model(&model.Retailer{}).
		Scopes(assignedTo(salesRepID), matchingFilter(f)).
		Preload("Region", selectIDName).
		Preload("Area", selectIDName).
		Preload("Distributor", selectIDName).
		Preload("Territory", selectIDName).
		Order("retailers.updated_at DESC").
		Order("retailers.id DESC").
		Offset((f.Page - 1) * f.Limit).
		Limit(f.Limit).
		Find(&retailers).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}

	page := &RetailerPage{
		Data: make([]RetailerListItem, 0, len(retailers)),
		Meta: PageMeta{
			Total:      total,
			Page:       f.Page,
			Limit:      f.Limit,
			TotalPages: int((total + int64(f.Limit) - 1) / int64(f.Limit)),
		},
	}
	for _, r := range retailers {
		page.Data = append(page.Data, toListItem(r))
	}

	if err := s.listings.store(ctx, salesRepID, key, page); err != nil {
		return nil, apperror.Internal(err, "write %s", key)
	}
	return page, nil
}

func toListItem(r model.Retailer) RetailerListItem {
	item := RetailerListItem{}
	if r.Region != nil {
		item.Region = &NamedRef{ID: r.Region.ID, Name: r.Region.Name}
	}
	if r.Area != nil {
		item.Area = &NamedRef{ID: r.Area.ID, Name: r.Area.Name}
	}
	if r.Distributor != nil {
		item.Distributor = &NamedRef{ID: r.Distributor.ID, Name: r.Distributor.Name}
	}
	if r.Territory != nil {
		item.Territory = &NamedRef{ID: r.Territory.ID, Name: r.Territory.Name}
	}
	r.Region, r.Area, r.Distributor, r.Territory = nil, nil, nil, nil
	item.Retailer = r
	return item
}

// GetForSalesRep returns one assigned retailer with its relations.
// A retailer that exists but is not assigned to salesRepID is reported as not found.
func (s *RetailerService) GetForSalesRep(ctx context.Context, retailerID, salesRepID uint) (*model.Retailer, error) {
	defer s.metrics.TrackDBOperation("select")(time.Now())

	var retailer model.Retailer
	err := s.db.WithContext(ctx).
		Scopes(assignedTo(salesRepID)).
		Preload("Region").
		Preload("Area").
		Preload("Distributor").
		Preload("Territory").
		Where("retailers.id = ?", retailerID).
		First(&retailer).Error
	if err != nil {
		if apperror.KindOf(fromDB(err, "Retailer")) == apperror.KindNotFound {
			return nil, apperror.NotFound(notAssignedMessage)
		}
		return nil, fromDB(err, "Retailer")
	}
	return &retailer, nil
}

// UpdateForSalesRep applies points, routes and notes to an assigned retailer and drops
// the cached listings of every sales rep the retailer is assigned to.
func (s *RetailerService) UpdateForSalesRep(ctx context.Context, retailerID, salesRepID uint, req UpdateRetailerRequest) (*model.Retailer, error) {
	defer s.metrics.TrackDBOperation("update")(time.Now())
	db := s.db.WithContext(ctx)

	var assignment model.SalesRepRetailer
	err := db.Where("sales_rep_id = ? AND retailer_id = ?", salesRepID, retailerID).Take(&assignment).Error
	if err != nil {
		if apperror.KindOf(fromDB(err, "Retailer")) == apperror.KindNotFound {
			return nil, apperror.NotFound(notAssignedMessage)
		}
		return nil, fromDB(err, "Retailer")
	}

	changes := map[string]interface{}{}
	if req.Points != nil {
		changes["points"] = *req.Points
	}
	if req.Routes != nil {
		changes["routes"] = *req.Routes
	}
	if req.Notes != nil {
		changes["notes"] = *req.Notes
	}

	if len(changes) > 0 {
		if err := db.Model(&model.Retailer{ID: retailerID}).Updates(changes).Error; err != nil {
			return nil, fromDB(err, "Retailer")
		}
	}

	var updated model.Retailer
	if err := db.Where("id = ?", retailerID).First(&updated).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}

	var holders []uint
	if err := db.Model(&model.SalesRepRetailer{}).
		Where("retailer_id = ?", retailerID).
		Pluck("sales_rep_id", &holders).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}
	if err := s.listings.invalidate(ctx, holders...); err != nil {
		return nil, err
	}

	s.log.Info("Retailer updated by sales rep",
		zap.Uint("retailer_id", retailerID),
		zap.Uint("sales_rep_id", salesRepID),
		zap.Int("fields", len(changes)))
	return &updated, nil
}
