// Package seed loads the demo accounts, geography and retailers into an empty or
// partially seeded database. Every step matches on natural keys so reruns add nothing.
package seed

import (
	"context"
	"fmt"

	"retailer-service/internal/model"
	"retailer-service/internal/service"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Options control a seed run
type Options struct {
	// ResetPasswords rewrites the demo account passwords and roles even when the accounts exist
	ResetPasswords bool
	HashCost       int
}

// Summary reports what the seed left in place
type Summary struct {
	AdminID     uint
	SalesRepID  uint
	Retailers   int
	Assignments int
}

type account struct {
	username string
	name     string
	phone    string
	password string
	role     model.Role
}

var accounts = []account{
	{"admin", "Admin User", "+8801700000000", "admin123", model.RoleAdmin},
	{"sr1", "Sales Rep 1", "+8801700000001", "sr123", model.RoleSalesRep},
}

// Run seeds db inside one transaction
func Run(ctx context.Context, db *gorm.DB, log *zap.Logger, opts Options) (*Summary, error) {
	summary := &Summary{}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return seedAll(tx, log, opts, summary)
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

func seedAll(tx *gorm.DB, log *zap.Logger, opts Options, summary *Summary) error {
	ids := make(map[string]uint, len(accounts))
	for _, a := range accounts {
		hash, err := service.HashPassword(a.password, opts.HashCost)
		if err != nil {
			return fmt.Errorf("hash password for %s: %w", a.username, err)
		}
		fields := model.SalesRep{Name: a.name, Phone: a.phone, PasswordHash: hash, Role: a.role}

		var sr model.SalesRep
		q := tx.Where(model.SalesRep{Username: a.username})
		if opts.ResetPasswords {
			q = q.Assign(map[string]interface{}{"password_hash": hash, "role": a.role})
		}
		if err := q.Attrs(fields).FirstOrCreate(&sr).Error; err != nil {
			return fmt.Errorf("seed account %s: %w", a.username, err)
		}
		ids[a.username] = sr.ID
		log.Info("Seeded account", zap.String("username", sr.Username), zap.String("role", string(sr.Role)))
	}
	summary.AdminID = ids["admin"]
	summary.SalesRepID = ids["sr1"]

	var dhaka, chittagong model.Region
	if err := tx.Where(model.Region{Name: "Dhaka"}).FirstOrCreate(&dhaka).Error; err != nil {
		return fmt.Errorf("seed regions: %w", err)
	}
	if err := tx.Where(model.Region{Name: "Chittagong"}).FirstOrCreate(&chittagong).Error; err != nil {
		return fmt.Errorf("seed regions: %w", err)
	}

	var dhanmondi, gulshan model.Area
	if err := tx.Where(model.Area{Name: "Dhanmondi", RegionID: dhaka.ID}).FirstOrCreate(&dhanmondi).Error; err != nil {
		return fmt.Errorf("seed areas: %w", err)
	}
	if err := tx.Where(model.Area{Name: "Gulshan", RegionID: dhaka.ID}).FirstOrCreate(&gulshan).Error; err != nil {
		return fmt.Errorf("seed areas: %w", err)
	}

	var distA, distB model.Distributor
	if err := tx.Where(model.Distributor{Name: "Distributor A"}).FirstOrCreate(&distA).Error; err != nil {
		return fmt.Errorf("seed distributors: %w", err)
	}
	if err := tx.Where(model.Distributor{Name: "Distributor B"}).FirstOrCreate(&distB).Error; err != nil {
		return fmt.Errorf("seed distributors: %w", err)
	}

	var terr1, terr2 model.Territory
	if err := tx.Where(model.Territory{Name: "Territory 1", AreaID: dhanmondi.ID}).FirstOrCreate(&terr1).Error; err != nil {
		return fmt.Errorf("seed territories: %w", err)
	}
	if err := tx.Where(model.Territory{Name: "Territory 2", AreaID: gulshan.ID}).FirstOrCreate(&terr2).Error; err != nil {
		return fmt.Errorf("seed territories: %w", err)
	}
	log.Info("Seeded geography")

	retailerIDs := make([]uint, 0, 10)
	for i := 1; i <= 10; i++ {
		even := i%2 == 0
		pick := func(a, b uint) uint {
			if even {
				return a
			}
			return b
		}
		phone := fmt.Sprintf("+88017000000%02d", i)
		routes := fmt.Sprintf("Route %d", i)
		notes := fmt.Sprintf("Sample notes for retailer %d", i)

		var r model.Retailer
		err := tx.Where(model.Retailer{UID: fmt.Sprintf("R%04d", i)}).
			Attrs(model.Retailer{
				Name:          fmt.Sprintf("Retailer %d", i),
				Phone:         &phone,
				RegionID:      pick(dhaka.ID, chittagong.ID),
				AreaID:        pick(dhanmondi.ID, gulshan.ID),
				DistributorID: pick(distA.ID, distB.ID),
				TerritoryID:   pick(terr1.ID, terr2.ID),
				Points:        i * 10,
				Routes:        &routes,
				Notes:         &notes,
			}).
			FirstOrCreate(&r).Error
		if err != nil {
			return fmt.Errorf("seed retailer %d: %w", i, err)
		}
		retailerIDs = append(retailerIDs, r.ID)
	}
	summary.Retailers = len(retailerIDs)
	log.Info("Seeded retailers", zap.Int("count", len(retailerIDs)))

	for _, id := range retailerIDs[:5] {
		var row model.SalesRepRetailer
		if err := tx.Where(model.SalesRepRetailer{SalesRepID: summary.SalesRepID, RetailerID: id}).
			FirstOrCreate(&row).Error; err != nil {
			return fmt.Errorf("seed assignment for retailer %d: %w", id, err)
		}
		summary.Assignments++
	}
	log.Info("Assigned retailers to sales rep",
		zap.Uint("sales_rep_id", summary.SalesRepID),
		zap.Int("count", summary.Assignments))

	return nil
}
