package report

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qualistock/internal/repository"
)

func sampleItems() []repository.ExpiringItem {
	return []repository.ExpiringItem{
		{
			BatchNumber:    "BATCH11",
			Quantity:       1500,
			ExpirationDate: time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC),
			Location:       "Warehouse A",
			ProductName:    "Apple",
			SKU:            "FOOD001",
			CategoryName:   "Food",
			DaysRemaining:  2,
		},
		{
			BatchNumber:    "BATCH21",
			Quantity:       12,
			ExpirationDate: time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC),
			Location:       "Warehouse B",
			ProductName:    "Orange, blood",
			SKU:            "FOOD002",
			CategoryName:   "Food",
			DaysRemaining:  47,
		},
	}
}

func TestWriteExpirationCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExpirationCSV(&buf, sampleItems()))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, header, records[0])
	assert.Equal(t, []string{"2026-03-06", "2", "Apple", "FOOD001", "Food", "BATCH11", "Warehouse A", "1500"}, records[1])
	assert.Equal(t, "Orange, blood", records[2][2])
}

func TestWriteExpirationCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExpirationCSV(&buf, nil))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestExpirationPDF(t *testing.T) {
	data, err := ExpirationPDF(sampleItems(), 90, time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))

	empty, err := ExpirationPDF(nil, 7, time.Now())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(empty, []byte("%PDF-")))
}
