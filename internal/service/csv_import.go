package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"retailer-service/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// csvColumns is the header an import file must carry, in any order
var csvColumns = []string{
	"uid", "name", "phone",
	"region_id", "area_id", "distributor_id", "territory_id",
	"points", "routes", "notes",
}

// ImportRow is one parsed CSV record. Foreign keys that failed to parse are nil.
type ImportRow struct {
	UID           string
	Name          string
	Phone         *string
	RegionID      *uint
	AreaID        *uint
	DistributorID *uint
	TerritoryID   *uint
	Points        int
	Routes        *string
	Notes         *string
}

// ParseRetailerCSV reads every record of a retailer import file.
// Unparsable foreign keys become nil and an unparsable points value becomes 0.
func ParseRetailerCSV(r io.Reader) ([]ImportRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, errors.New("file is empty")
	}
	if err != nil {
		return nil, err
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		index[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var rows []ImportRow
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}

		field := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}

		rows = append(rows, ImportRow{
			UID:           field("uid"),
			Name:          field("name"),
			Phone:         optionalString(field("phone")),
			RegionID:      optionalID(field("region_id")),
			AreaID:        optionalID(field("area_id")),
			DistributorID: optionalID(field("distributor_id")),
			TerritoryID:   optionalID(field("territory_id")),
			Points:        intOrZero(field("points")),
			Routes:        optionalString(field("routes")),
			Notes:         optionalString(field("notes")),
		})
	}

	return rows, nil
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func optionalID(v string) *uint {
	id, err := strconv.ParseUint(v, 10, 64)
	if err != nil || id == 0 {
		return nil
	}
	u := uint(id)
	return &u
}

func intOrZero(v string) int {
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func derefID(id *uint) uint {
	if id == nil {
		return 0
	}
	return *id
}

// toRetailers maps parsed rows onto models. A nil foreign key is written as 0,
// which the store's foreign key constraints reject.
func toRetailers(rows []ImportRow) []model.Retailer {
	out := make([]model.Retailer, 0, len(rows))
	for _, row := range rows {
		out = append(out, model.Retailer{
			UID:           row.UID,
			Name:          row.Name,
			Phone:         row.Phone,
			RegionID:      derefID(row.RegionID),
			AreaID:        derefID(row.AreaID),
			DistributorID: derefID(row.DistributorID),
			TerritoryID:   derefID(row.TerritoryID),
			Points:        row.Points,
			Routes:        row.Routes,
			Notes:         row.Notes,
		})
	}
	return out
}

// RetailerBatchWriter inserts one batch of imported retailers atomically,
// skipping rows whose uid already exists. It returns the number of rows inserted.
type RetailerBatchWriter interface {
	WriteBatch(ctx context.Context, batch []model.Retailer) (int64, error)
}

// GormBatchWriter is the RetailerBatchWriter backed by the relational store
type GormBatchWriter struct {
	db *gorm.DB
}

func NewGormBatchWriter(db *gorm.DB) *GormBatchWriter {
	return &GormBatchWriter{db: db}
}

func (w *GormBatchWriter) WriteBatch(ctx context.Context, batch []model.Retailer) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}
	result := w.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoNothing: true,
		}).
		Create(&batch)
	return result.RowsAffected, result.Error
}
