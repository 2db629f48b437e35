package model

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestDaysBetweenFloors(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	require.Equal(t, 0, DaysBetween(now, now.Add(23*time.Hour)))
	require.Equal(t, 1, DaysBetween(now, now.Add(25*time.Hour)))
	require.Equal(t, 7, DaysBetween(now, now.AddDate(0, 0, 7)))
	require.Equal(t, -1, DaysBetween(now, now.Add(-time.Hour)))
}

func TestStockItemClearAndPlaceholder(t *testing.T) {
	exp := time.Now().Add(48 * time.Hour)
	item := &StockItem{Quantity: 12, Location: "Depot A", BatchNumber: "B1", ExpirationDate: &exp}
	require.GreaterOrEqual(t, item.DaysUntilExpiry(time.Now()), 1)

	item.Clear()
	require.Zero(t, item.Quantity)
	require.Empty(t, item.Location)
	require.Empty(t, item.BatchNumber)
	require.Nil(t, item.ExpirationDate)
	require.Equal(t, -1, item.DaysUntilExpiry(time.Now()))

	p := NewPlaceholderStock(uuid.New())
	require.Equal(t, PlaceholderLocation, p.Location)
	require.Equal(t, PlaceholderBatch, p.BatchNumber)
}

func TestNewMovement(t *testing.T) {
	item := &StockItem{BaseModel: BaseModel{ID: uuid.New()}, ProductID: uuid.New(), Quantity: 4}

	out := NewMovement(item, 10, ReasonUpdated, "u1")
	require.NotNil(t, out)
	require.Equal(t, MovementOut, out.Type)
	require.Equal(t, 6, out.Quantity)
	require.Equal(t, 4, out.Balance)
	require.Equal(t, "u1", out.CreatedBy)

	in := NewMovement(item, 0, ReasonCreated, "u1")
	require.Equal(t, MovementIn, in.Type)
	require.Equal(t, 4, in.Quantity)

	require.Nil(t, NewMovement(item, 4, ReasonUpdated, "u1"))
}

func TestParseQualityStatus(t *testing.T) {
	st, ok := ParseQualityStatus("poor")
	require.True(t, ok)
	require.Equal(t, QualityPoor, st)
	require.True(t, st.IsIssue())
	require.False(t, QualityGood.IsIssue())

	_, ok = ParseQualityStatus("broken")
	require.False(t, ok)
}

func TestPrivilegesForRole(t *testing.T) {
	admin := PrivilegesForRole(RoleAdmin)
	staff := PrivilegesForRole(RoleStaff)
	require.Len(t, admin, len(DefaultPrivileges))
	require.Contains(t, staff, PrivStockWrite)
	require.NotContains(t, staff, PrivUserManage)
	require.NotContains(t, staff, PrivSystemAdmin)
}

func TestUserPasswordAndRole(t *testing.T) {
	u := &User{Username: "admin"}
	require.NoError(t, u.SetPassword("password"))
	require.True(t, u.CheckPassword("password"))
	require.False(t, u.CheckPassword("nope"))
	require.False(t, u.IsAdmin())
	require.Empty(t, u.GetPrivilegeCodes())

	u.Role = &Role{Code: RoleAdmin, Privileges: []Privilege{{Code: PrivSystemAdmin}}}
	require.True(t, u.IsAdmin())
	require.True(t, u.HasPrivilege(PrivSystemAdmin))
	resp := u.ToResponse()
	require.True(t, resp.IsAdmin)
	require.Equal(t, []string{PrivSystemAdmin}, resp.Privileges)
}
