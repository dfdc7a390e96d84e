package model

import "time"

// Role of a SalesRep account
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSalesRep Role = "SALES_REP"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSalesRep
}

// SalesRep is a login account. Admins are SalesRep rows with RoleAdmin.
type SalesRep struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Username     string    `json:"username" gorm:"type:varchar(100);uniqueIndex;not null"`
	Name         string    `json:"name" gorm:"type:varchar(255);not null"`
	Phone        string    `json:"phone" gorm:"type:varchar(50)"`
	PasswordHash string    `json:"-" gorm:"type:varchar(255);not null"`
	Role         Role      `json:"role" gorm:"type:varchar(20);not null"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// SalesRepRetailer is the assignment row granting a SalesRep access to a Retailer
type SalesRepRetailer struct {
	SalesRepID uint      `json:"salesRepId" gorm:"primaryKey;autoIncrement:false"`
	RetailerID uint      `json:"retailerId" gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt  time.Time `json:"createdAt"`

	SalesRep *SalesRep `json:"-" gorm:"foreignKey:SalesRepID;constraint:OnDelete:CASCADE"`
	Retailer *Retailer `json:"-" gorm:"foreignKey:RetailerID;constraint:OnDelete:CASCADE"`
}

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&Region{},
		&Area{},
		&Distributor{},
		&Territory{},
		&Retailer{},
		&SalesRep{},
		&SalesRepRetailer{},
	}
}
