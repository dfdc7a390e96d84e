package model

// Region is the top of the sales geography
type Region struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
}

// Area belongs to a Region; (name, region) is unique
type Area struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_areas_name_region"`
	RegionID uint    `json:"regionId" gorm:"not null;uniqueIndex:idx_areas_name_region"`
	Region   *Region `json:"region,omitempty" gorm:"foreignKey:RegionID;constraint:OnDelete:RESTRICT"`
}

// Distributor supplies retailers
type Distributor struct {
	ID   uint   `json:"id" gorm:"primaryKey"`
	Name string `json:"name" gorm:"type:varchar(255);uniqueIndex;not null"`
}

// Territory belongs to an Area; (name, area) is unique
type Territory struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	Name   string `json:"name" gorm:"type:varchar(255);not null;uniqueIndex:idx_territories_name_area"`
	AreaID uint   `json:"areaId" gorm:"not null;uniqueIndex:idx_territories_name_area"`
	Area   *Area  `json:"area,omitempty" gorm:"foreignKey:AreaID;constraint:OnDelete:RESTRICT"`
}
