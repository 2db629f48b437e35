package model

import "strings"

// Privilege represents a permission that can be granted through a role
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "stock:write"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Privilege codes
const (
	PrivCatalogWrite  = "catalog:write"
	PrivStockWrite    = "stock:write"
	PrivQualityWrite  = "quality:write"
	PrivForecastWrite = "forecast:write"
	PrivUserManage    = "user:manage"
	PrivSystemAdmin   = "system:admin"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	{Code: PrivCatalogWrite, Name: "Manage Categories and Products"},
	{Code: PrivStockWrite, Name: "Manage Stock Items"},
	{Code: PrivQualityWrite, Name: "Record Quality Checks"},
	{Code: PrivForecastWrite, Name: "Manage Forecasts and Market Trends"},
	{Code: PrivUserManage, Name: "Manage Users"},
	{Code: PrivSystemAdmin, Name: "System Administration"},
}

// AdminOnly marks privileges STAFF never receives.
func (p Privilege) AdminOnly() bool {
	return strings.HasPrefix(p.Code, "user:") || strings.HasPrefix(p.Code, "system:")
}
