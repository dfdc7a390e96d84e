package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"retailer-service/internal/apperror"
	"retailer-service/internal/model"
	"retailer-service/pkg/cache"
	"retailer-service/prometheus"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentRequest names a sales rep and the retailers to (un)assign
type AssignmentRequest struct {
	SalesRepID  uint   `json:"salesRepId" validate:"required"`
	RetailerIDs []uint `json:"retailerIds" validate:"required,min=1,dive,required"`
}

// CreateRetailerRequest is the admin body for creating one retailer
type CreateRetailerRequest struct {
	UID           string  `json:"uid" validate:"required,max=100"`
	Name          string  `json:"name" validate:"required,max=255"`
	Phone         *string `json:"phone" validate:"omitempty,max=50"`
	RegionID      uint    `json:"regionId" validate:"required"`
	AreaID        uint    `json:"areaId" validate:"required"`
	DistributorID uint    `json:"distributorId" validate:"required"`
	TerritoryID   uint    `json:"territoryId" validate:"required"`
	Points        int     `json:"points"`
	Routes        *string `json:"routes"`
	Notes         *string `json:"notes"`
}

// ImportResult reports a finished CSV import. Total counts parsed rows, duplicates included.
type ImportResult struct {
	Message string `json:"message"`
	Total   int    `json:"total"`
}

// RetailerManagementService is the admin side of retailers: assignment to sales reps,
// individual creation and bulk CSV import.
type RetailerManagementService struct {
	db        *gorm.DB
	writer    RetailerBatchWriter
	batchSize int
	listings  listingCache
	metrics   *prometheus.Metrics
	log       *zap.Logger
}

// NewRetailerManagementService creates the admin retailer service.
// listingTTL must match the one given to RetailerService so both share the same index expiry.
func NewRetailerManagementService(db *gorm.DB, c cache.Cache, listingTTL time.Duration, batchSize int, metrics *prometheus.Metrics, log *zap.Logger) *RetailerManagementService {
	return &RetailerManagementService{
		db:        db,
		writer:    NewGormBatchWriter(db),
		batchSize: batchSize,
		listings:  listingCache{cache: c, ttl: listingTTL, log: log},
		metrics:   metrics,
		log:       log,
	}
}

// unitOfWork runs inside a single transaction
type unitOfWork func(tx *gorm.DB) error

// insertAssignments adds one row per retailer, leaving existing pairs untouched
func insertAssignments(rows []model.SalesRepRetailer) unitOfWork {
	return func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
	}
}

// AssignRetailers grants salesRepId access to every listed retailer. Either every
// listed id names an existing retailer and all pairs are written in one transaction,
// or nothing is written. A repeated id counts as a missing retailer.
func (s *RetailerManagementService) AssignRetailers(ctx context.Context, req AssignmentRequest) (*MessageResponse, error) {
	defer s.metrics.TrackDBOperation("assign")(time.Now())
	db := s.db.WithContext(ctx)

	var sr model.SalesRep
	if err := db.Where("id = ?", req.SalesRepID).First(&sr).Error; err != nil {
		if apperror.KindOf(fromDB(err, "Sales rep")) == apperror.KindNotFound {
			return nil, apperror.Validation("Sales rep not found")
		}
		return nil, fromDB(err, "Sales rep")
	}

	var found int64
	if err := db.Model(&model.Retailer{}).Where("id IN ?", req.RetailerIDs).Count(&found).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}
	if found != int64(len(req.RetailerIDs)) {
		return nil, apperror.Validation("Some retailers not found")
	}

	rows := make([]model.SalesRepRetailer, 0, len(req.RetailerIDs))
	for _, id := range req.RetailerIDs {
		rows = append(rows, model.SalesRepRetailer{SalesRepID: sr.ID, RetailerID: id})
	}
	if err := db.Transaction(insertAssignments(rows)); err != nil {
		return nil, fromDB(err, "Assignment")
	}

	if err := s.listings.invalidate(ctx, sr.ID); err != nil {
		return nil, err
	}

	s.metrics.AssignmentChangesCounter.WithLabelValues("assign").Add(float64(len(rows)))
	s.log.Info("Retailers assigned",
		zap.Uint("sales_rep_id", sr.ID),
		zap.Int("count", len(rows)))
	return &MessageResponse{Message: fmt.Sprintf("Assigned %d retailers to SR %d", len(req.RetailerIDs), sr.ID)}, nil
}

// UnassignRetailers removes the listed pairs. Missing pairs, retailers or sales reps are not errors.
func (s *RetailerManagementService) UnassignRetailers(ctx context.Context, req AssignmentRequest) (*MessageResponse, error) {
	defer s.metrics.TrackDBOperation("unassign")(time.Now())

	result := s.db.WithContext(ctx).
		Where("sales_rep_id = ? AND retailer_id IN ?", req.SalesRepID, req.RetailerIDs).
		Delete(&model.SalesRepRetailer{})
	if result.Error != nil {
		return nil, fromDB(result.Error, "Assignment")
	}

	if err := s.listings.invalidate(ctx, req.SalesRepID); err != nil {
		return nil, err
	}

	s.metrics.AssignmentChangesCounter.WithLabelValues("unassign").Add(float64(result.RowsAffected))
	s.log.Info("Retailers unassigned",
		zap.Uint("sales_rep_id", req.SalesRepID),
		zap.Int("requested", len(req.RetailerIDs)),
		zap.Int64("removed", result.RowsAffected))
	return &MessageResponse{Message: fmt.Sprintf("Unassigned %d retailers from SR %d", len(req.RetailerIDs), req.SalesRepID)}, nil
}

// AssignedRetailerIDs lists the retailer ids currently assigned to salesRepID
func (s *RetailerManagementService) AssignedRetailerIDs(ctx context.Context, salesRepID uint) ([]uint, error) {
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&model.SalesRep{}).Where("id = ?", salesRepID).Count(&count).Error; err != nil {
		return nil, fromDB(err, "Sales rep")
	}
	if count == 0 {
		return nil, apperror.NotFound("Sales rep not found")
	}

	ids := []uint{}
	if err := db.Model(&model.SalesRepRetailer{}).
		Where("sales_rep_id = ?", salesRepID).
		Order("retailer_id ASC").
		Pluck("retailer_id", &ids).Error; err != nil {
		return nil, fromDB(err, "Assignment")
	}
	return ids, nil
}

// CreateRetailer adds a single retailer after checking its uid and references
func (s *RetailerManagementService) CreateRetailer(ctx context.Context, req CreateRetailerRequest) (*model.Retailer, error) {
	defer s.metrics.TrackDBOperation("insert")(time.Now())
	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&model.Retailer{}).Where("uid = ?", req.UID).Count(&count).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}
	if count > 0 {
		return nil, apperror.Conflict("Retailer with this uid already exists", nil)
	}

	refs := []struct {
		model interface{}
		id    uint
		name  string
	}{
		{&model.Region{}, req.RegionID, "Region"},
		{&model.Area{}, req.AreaID, "Area"},
		{&model.Distributor{}, req.DistributorID, "Distributor"},
		{&model.Territory{}, req.TerritoryID, "Territory"},
	}
	for _, ref := range refs {
		var n int64
		if err := db.Model(ref.model).Where("id = ?", ref.id).Count(&n).Error; err != nil {
			return nil, fromDB(err, ref.name)
		}
		if n == 0 {
			return nil, apperror.Validation("%s not found", ref.name)
		}
	}

	retailer := model.Retailer{
		UID:           req.UID,
		Name:          req.Name,
		Phone:         req.Phone,
		RegionID:      req.RegionID,
		AreaID:        req.AreaID,
		DistributorID: req.DistributorID,
		TerritoryID:   req.TerritoryID,
		Points:        req.Points,
		Routes:        req.Routes,
		Notes:         req.Notes,
	}
	if err := db.Create(&retailer).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}

	var created model.Retailer
	if err := db.Preload("Region").Preload("Area").Preload("Distributor").Preload("Territory").
		Where("id = ?", retailer.ID).First(&created).Error; err != nil {
		return nil, fromDB(err, "Retailer")
	}

	s.log.Info("Retailer created", zap.Uint("id", created.ID), zap.String("uid", created.UID))
	return &created, nil
}

// ImportRetailersFromCSV parses the whole upload, then writes it in batches that skip
// rows whose uid already exists. A failing batch stops the import; earlier batches stay committed.
// Once writing starts the import runs to the end even if ctx is cancelled.
func (s *RetailerManagementService) ImportRetailersFromCSV(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := ParseRetailerCSV(r)
	if err != nil {
		s.metrics.ImportsCounter.WithLabelValues("parse_failed").Inc()
		return nil, apperror.Wrap(apperror.KindValidation, err, "CSV parsing failed: %v", err)
	}
	ctx = context.WithoutCancel(ctx)

	imported := 0
	for start := 0; start < len(rows); start += s.batchSize {
		end := min(start+s.batchSize, len(rows))
		batch := toRetailers(rows[start:end])

		inserted, err := s.writer.WriteBatch(ctx, batch)
		if err != nil {
			s.metrics.ImportBatchesCounter.WithLabelValues("failed").Inc()
		s.metrics.ImportsCounter.WithLabelValues("batch_failed").Inc()
			s.log.Error("Retailer import batch failed",
				zap.Int("offset", start),
				zap.Int("size", len(batch)),
				zap.Int("committed_rows", imported),
				zap.Error(err))
			return nil, apperror.Wrap(apperror.KindValidation, err, "Import failed: %v", err)
		}

		imported += len(batch)
		s.metrics.ImportBatchesCounter.WithLabelValues("written").Inc()
		s.metrics.ImportRowsCounter.WithLabelValues("inserted").Add(float64(inserted))
		s.metrics.ImportRowsCounter.WithLabelValues("skipped").Add(float64(int64(len(batch)) - inserted))
		s.log.Debug("Retailer import batch written",
			zap.Int("offset", start),
			zap.Int("size", len(batch)),
			zap.Int64("inserted", inserted))
	}

	s.metrics.ImportsCounter.WithLabelValues("completed").Inc()
	s.log.Info("Retailer import finished",
		zap.Int("parsed", len(rows)),
		zap.Int("batch_size", s.batchSize))
	return &ImportResult{
		Message: fmt.Sprintf("Imported %d retailers", imported),
		Total:   len(rows),
	}, nil
}
