package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/ws"
)

const issuesByProductLimit = 10

type QualityService interface {
	Create(ctx context.Context, actor Actor, req *QualityCheckRequest) (*model.QualityCheck, error)
	List(ctx context.Context, q QualityQuery) ([]model.QualityCheck, error)
	Get(ctx context.Context, id uuid.UUID) (*model.QualityCheck, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *QualityCheckUpdate) (*model.QualityCheck, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	ByProduct(ctx context.Context, productID uuid.UUID, page repository.Page) ([]model.QualityCheck, error)
	ByBatch(ctx context.Context, batch string, page repository.Page) ([]model.QualityCheck, error)
	ByStatus(ctx context.Context, status string, page repository.Page) ([]model.QualityCheck, error)
	Critical(ctx context.Context, page repository.Page) ([]model.QualityCheck, error)
	StatsByStatus(ctx context.Context) (map[model.QualityStatus]int64, error)
	IssuesByProduct(ctx context.Context) ([]repository.ProductIssueCount, error)
	Statistics(ctx context.Context) (*QualityStatistics, error)
}

type QualityCheckRequest struct {
	ProductID   uuid.UUID  `json:"product_id" validate:"uuid_required"`
	BatchNumber string     `json:"batch_number" validate:"max=100"`
	CheckDate   *time.Time `json:"check_date"`
	Status      string     `json:"status" validate:"required"`
	Notes       string     `json:"notes"`
	CheckedBy   *uuid.UUID `json:"checked_by"`
}

type QualityCheckUpdate struct {
	ProductID   *uuid.UUID `json:"product_id"`
	BatchNumber *string    `json:"batch_number" validate:"omitempty,max=100"`
	CheckDate   *time.Time `json:"check_date"`
	Status      *string    `json:"status"`
	Notes       *string    `json:"notes"`
	CheckedBy   *uuid.UUID `json:"checked_by"`
}

type QualityQuery struct {
	Status      string
	ProductID   *uuid.UUID
	BatchNumber string
	repository.Page
}

// QualityStatistics summarises all checks. IssueRate is the POOR+CRITICAL
// share of all checks, from 0 to 1.
type QualityStatistics struct {
	Total     int64                         `json:"total"`
	ByStatus  map[model.QualityStatus]int64 `json:"by_status"`
	IssueRate float64                       `json:"issue_rate"`
}

type qualityService struct {
	checks   repository.QualityCheckRepository
	products repository.ProductRepository
	users    repository.UserRepository
	deps     Deps
}

func NewQualityService(checks repository.QualityCheckRepository, products repository.ProductRepository, users repository.UserRepository, deps Deps) QualityService {
	return &qualityService{checks: checks, products: products, users: users, deps: deps.withDefaults()}
}

func parseStatus(s string) (model.QualityStatus, error) {
	status, ok := model.ParseQualityStatus(s)
	if !ok {
		return "", invalid("Invalid quality status '%s'", s)
	}
	return status, nil
}

func (s *qualityService) Create(ctx context.Context, actor Actor, req *QualityCheckRequest) (*model.QualityCheck, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	status, err := parseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, req.ProductID)
	if err != nil {
		return nil, lookupErr(err, "Product")
	}
	checker, err := s.resolveChecker(ctx, actor, req.CheckedBy)
	if err != nil {
		return nil, err
	}

	check := &model.QualityCheck{
		ProductID:   product.ID,
		BatchNumber: strings.TrimSpace(req.BatchNumber),
		CheckDate:   s.deps.Now(),
		Status:      status,
		Notes:       req.Notes,
		CheckedBy:   checker,
	}
	if req.CheckDate != nil {
		check.CheckDate = req.CheckDate.UTC()
	}
	check.Touch(actor.Audit())
	if err := s.checks.Create(ctx, check); err != nil {
		return nil, writeErr(err, "Quality check")
	}
	check.Product = product

	s.deps.changed(ctx, ws.Event{Type: ws.EventStockUpdate, Action: "quality_check_created", Data: check, User: actor.eventUser()})
	s.alert(ctx, actor, check, product)
	return check, nil
}

// resolveChecker falls back to the acting user when the requested checker
// is absent or unknown.
func (s *qualityService) resolveChecker(ctx context.Context, actor Actor, requested *uuid.UUID) (uuid.UUID, error) {
	if requested != nil && *requested != uuid.Nil {
		user, err := s.users.FindByID(ctx, *requested)
		if err == nil {
			return user.ID, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return uuid.Nil, err
		}
	}
	if actor.ID == uuid.Nil {
		return uuid.Nil, invalid("checked_by is required")
	}
	return actor.ID, nil
}

func (s *qualityService) alert(ctx context.Context, actor Actor, check *model.QualityCheck, product *model.Product) {
	if !check.Status.IsIssue() {
		return
	}
	if s.deps.Alerts != nil {
		s.deps.Alerts.QualityAlert(string(check.Status))
	}
	if s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Publish(ws.Event{
		Type:   ws.EventQualityAlert,
		Action: strings.ToLower(string(check.Status)),
		Data: map[string]interface{}{
			"check_id":     check.ID,
			"product_id":   product.ID,
			"product_name": product.Name,
			"sku":          product.SKU,
			"batch_number": check.BatchNumber,
			"status":       check.Status,
		},
		User:      actor.eventUser(),
		Message:   fmt.Sprintf("%s quality reported for '%s' batch %s", check.Status, product.Name, check.BatchNumber),
		Timestamp: s.deps.Now(),
	})
}

func (s *qualityService) List(ctx context.Context, q QualityQuery) ([]model.QualityCheck, error) {
	f := repository.QualityCheckFilter{ProductID: q.ProductID, BatchNumber: q.BatchNumber, Page: q.Page}
	if q.Status != "" {
		status, err := parseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		f.Statuses = []model.QualityStatus{status}
	}
	return s.checks.FindAll(ctx, f)
}

func (s *qualityService) Get(ctx context.Context, id uuid.UUID) (*model.QualityCheck, error) {
	check, err := s.checks.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Quality check")
	}
	return check, nil
}

func (s *qualityService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *QualityCheckUpdate) (*model.QualityCheck, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	check, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	wasIssue := check.Status.IsIssue()

	if req.ProductID != nil {
		check.ProductID = *req.ProductID
	}
	product, err := s.products.FindByID(ctx, check.ProductID)
	if err != nil {
		return nil, lookupErr(err, "Product")
	}
	if req.CheckedBy != nil {
		user, err := s.users.FindByID(ctx, *req.CheckedBy)
		if err != nil {
			return nil, lookupErr(err, "User")
		}
		check.CheckedBy = user.ID
	}
	if req.Status != nil {
		status, err := parseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		check.Status = status
	}
	if req.BatchNumber != nil {
		check.BatchNumber = strings.TrimSpace(*req.BatchNumber)
	}
	if req.CheckDate != nil {
		check.CheckDate = req.CheckDate.UTC()
	}
	if req.Notes != nil {
		check.Notes = *req.Notes
	}
	check.Touch(actor.Audit())
	check.Product = nil
	if err := s.checks.Update(ctx, check); err != nil {
		return nil, writeErr(err, "Quality check")
	}
	check.Product = product

	s.deps.changed(ctx, ws.Event{Type: ws.EventStockUpdate, Action: "quality_check_updated", Data: check, User: actor.eventUser()})
	if !wasIssue {
		s.alert(ctx, actor, check, product)
	}
	return check, nil
}

func (s *qualityService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.checks.Delete(ctx, id); err != nil {
		return writeErr(err, "Quality check")
	}
	s.deps.changed(ctx, ws.Event{
		Type:   ws.EventStockUpdate,
		Action: "quality_check_deleted",
		Data:   map[string]interface{}{"id": id},
		User:   actor.eventUser(),
	})
	return nil
}

func (s *qualityService) ByProduct(ctx context.Context, productID uuid.UUID, page repository.Page) ([]model.QualityCheck, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, lookupErr(err, "Product")
	}
	return s.checks.FindAll(ctx, repository.QualityCheckFilter{ProductID: &productID, Page: page})
}

func (s *qualityService) ByBatch(ctx context.Context, batch string, page repository.Page) ([]model.QualityCheck, error) {
	batch = strings.TrimSpace(batch)
	if batch == "" {
		return nil, invalid("batch number is required")
	}
	return s.checks.FindAll(ctx, repository.QualityCheckFilter{BatchExact: batch, Page: page})
}

func (s *qualityService) ByStatus(ctx context.Context, raw string, page repository.Page) ([]model.QualityCheck, error) {
	status, err := parseStatus(raw)
	if err != nil {
		return nil, err
	}
	return s.checks.FindAll(ctx, repository.QualityCheckFilter{Statuses: []model.QualityStatus{status}, Page: page})
}

func (s *qualityService) Critical(ctx context.Context, page repository.Page) ([]model.QualityCheck, error) {
	return s.checks.FindAll(ctx, repository.QualityCheckFilter{Statuses: []model.QualityStatus{model.QualityCritical}, Page: page})
}

func (s *qualityService) StatsByStatus(ctx context.Context) (map[model.QualityStatus]int64, error) {
	return s.checks.CountByStatus(ctx)
}

func (s *qualityService) IssuesByProduct(ctx context.Context) ([]repository.ProductIssueCount, error) {
	return s.checks.IssuesByProduct(ctx, issuesByProductLimit)
}

func (s *qualityService) Statistics(ctx context.Context) (*QualityStatistics, error) {
	byStatus, err := s.checks.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats := &QualityStatistics{ByStatus: byStatus}
	var issues int64
	for status, n := range byStatus {
		stats.Total += n
		if status.IsIssue() {
			issues += n
		}
	}
	if stats.Total > 0 {
		stats.IssueRate = math.Round(float64(issues)/float64(stats.Total)*10000) / 10000
	}
	return stats, nil
}
