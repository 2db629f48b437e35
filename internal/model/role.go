package model

// Role represents user roles in the system
type Role struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	Code        string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // ADMIN, STAFF
	Name        string      `gorm:"type:varchar(100)" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Privileges  []Privilege `gorm:"many2many:role_privileges;" json:"privileges,omitempty"`
}

// Role codes as constants
const (
	RoleAdmin = "ADMIN"
	RoleStaff = "STAFF"
)

// DefaultRoles defines the default roles in the system
var DefaultRoles = []Role{
	{
		Code:        RoleAdmin,
		Name:        "Administrator",
		Description: "Full access including user and system administration",
	},
	{
		Code:        RoleStaff,
		Name:        "Staff",
		Description: "Inventory, quality and forecasting work",
	},
}

// PrivilegesForRole picks the default privilege codes a role is seeded with.
func PrivilegesForRole(code string) []string {
	out := []string{}
	for _, p := range DefaultPrivileges {
		if code == RoleAdmin || !p.AdminOnly() {
			out = append(out, p.Code)
		}
	}
	return out
}
