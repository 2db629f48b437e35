package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type QualityStatus string

const (
	QualityExcellent  QualityStatus = "EXCELLENT"
	QualityGood       QualityStatus = "GOOD"
	QualityAcceptable QualityStatus = "ACCEPTABLE"
	QualityPoor       QualityStatus = "POOR"
	QualityCritical   QualityStatus = "CRITICAL"
)

// QualityStatuses lists every status from best to worst.
var QualityStatuses = []QualityStatus{
	QualityExcellent,
	QualityGood,
	QualityAcceptable,
	QualityPoor,
	QualityCritical,
}

// IssueStatuses are the statuses counted as quality issues.
var IssueStatuses = []QualityStatus{QualityPoor, QualityCritical}

// ParseQualityStatus accepts any casing.
func ParseQualityStatus(s string) (QualityStatus, bool) {
	st := QualityStatus(strings.ToUpper(strings.TrimSpace(s)))
	return st, st.Valid()
}

func (s QualityStatus) Valid() bool {
	for _, v := range QualityStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsIssue is true for POOR and CRITICAL.
func (s QualityStatus) IsIssue() bool {
	return s == QualityPoor || s == QualityCritical
}

type QualityCheck struct {
	BaseModel
	ProductID   uuid.UUID     `gorm:"type:char(36);index;not null" json:"product_id"`
	BatchNumber string        `gorm:"type:varchar(100);index" json:"batch_number"`
	CheckDate   time.Time     `gorm:"index;not null" json:"check_date"`
	Status      QualityStatus `gorm:"type:varchar(20);index;not null" json:"status"`
	Notes       string        `gorm:"type:text" json:"notes"`
	CheckedBy   uuid.UUID     `gorm:"type:char(36);index;not null" json:"checked_by"`

	Product *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
	Checker *User    `gorm:"foreignKey:CheckedBy;constraint:OnDelete:RESTRICT" json:"checker,omitempty"`
}
