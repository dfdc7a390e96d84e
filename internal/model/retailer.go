package model

import "time"

// Retailer is a point of sale. UID is the externally assigned identifier.
type Retailer struct {
	ID            uint      `json:"id" gorm:"primaryKey"`
	UID           string    `json:"uid" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name          string    `json:"name" gorm:"type:varchar(255);not null"`
	Phone         *string   `json:"phone" gorm:"type:varchar(50)"`
	RegionID      uint      `json:"regionId" gorm:"not null;index"`
	AreaID        uint      `json:"areaId" gorm:"not null;index"`
	DistributorID uint      `json:"distributorId" gorm:"not null;index"`
	TerritoryID   uint      `json:"territoryId" gorm:"not null;index"`
	Points        int       `json:"points" gorm:"not null"`
	Routes        *string   `json:"routes" gorm:"type:text"`
	Notes         *string   `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt" gorm:"index"`

	Region      *Region      `json:"region,omitempty" gorm:"foreignKey:RegionID;constraint:OnDelete:RESTRICT"`
	Area        *Area        `json:"area,omitempty" gorm:"foreignKey:AreaID;constraint:OnDelete:RESTRICT"`
	Distributor *Distributor `json:"distributor,omitempty" gorm:"foreignKey:DistributorID;constraint:OnDelete:RESTRICT"`
	Territory   *Territory   `json:"territory,omitempty" gorm:"foreignKey:TerritoryID;constraint:OnDelete:RESTRICT"`
}
