package memrepo

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type qualityCheckRepo struct{ s *Store }

func (s *Store) checkRefs(c *model.QualityCheck) error {
	if _, ok := s.products[c.ProductID]; !ok {
		return repository.ErrInUse
	}
	if _, ok := s.users[c.CheckedBy]; !ok {
		return repository.ErrInUse
	}
	return nil
}

func (r *qualityCheckRepo) Create(_ context.Context, c *model.QualityCheck) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.checkRefs(c); err != nil {
		return err
	}
	r.s.stamp(&c.BaseModel, true)
	stored := *c
	stored.Product, stored.Checker = nil, nil
	r.s.checks[c.ID] = stored
	return nil
}

func matchCheck(c model.QualityCheck, f repository.QualityCheckFilter) bool {
	if len(f.Statuses) > 0 {
		found := false
		for _, st := range f.Statuses {
			if c.Status == st {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.ProductID != nil && c.ProductID != *f.ProductID {
		return false
	}
	if f.BatchNumber != "" && !contains(c.BatchNumber, f.BatchNumber) {
		return false
	}
	if f.BatchExact != "" && c.BatchNumber != f.BatchExact {
		return false
	}
	return true
}

func (r *qualityCheckRepo) matching(f repository.QualityCheckFilter) []model.QualityCheck {
	out := []model.QualityCheck{}
	for _, c := range r.s.checks {
		if matchCheck(c, f) {
			out = append(out, c)
		}
	}
	return out
}

func (r *qualityCheckRepo) FindAll(_ context.Context, f repository.QualityCheckFilter) ([]model.QualityCheck, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.matching(f)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CheckDate.Equal(out[j].CheckDate) {
			return out[i].CheckDate.After(out[j].CheckDate)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	out = window(out, f.Page)
	for i := range out {
		if p, ok := r.s.products[out[i].ProductID]; ok {
			out[i].Product = &p
		}
	}
	return out, nil
}

func (r *qualityCheckRepo) Count(_ context.Context, f repository.QualityCheckFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(f))), nil
}

func (r *qualityCheckRepo) FindByID(_ context.Context, id uuid.UUID) (*model.QualityCheck, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.checks[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p, ok := r.s.products[c.ProductID]; ok {
		c.Product = &p
	}
	return &c, nil
}

func (r *qualityCheckRepo) Update(_ context.Context, c *model.QualityCheck) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.checks[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if err := r.s.checkRefs(c); err != nil {
		return err
	}
	r.s.stamp(&c.BaseModel, false)
	stored := *c
	stored.Product, stored.Checker = nil, nil
	r.s.checks[c.ID] = stored
	return nil
}

func (r *qualityCheckRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.checks[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.checks, id)
	return nil
}

func (r *qualityCheckRepo) CountByProduct(_ context.Context, productID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(repository.QualityCheckFilter{ProductID: &productID}))), nil
}

func (r *qualityCheckRepo) CountByChecker(_ context.Context, userID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, c := range r.s.checks {
		if c.CheckedBy == userID {
			n++
		}
	}
	return n, nil
}

func (r *qualityCheckRepo) CountByStatus(_ context.Context) (map[model.QualityStatus]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[model.QualityStatus]int64, len(model.QualityStatuses))
	for _, st := range model.QualityStatuses {
		out[st] = 0
	}
	for _, c := range r.s.checks {
		out[c.Status]++
	}
	return out, nil
}

func (r *qualityCheckRepo) IssuesByProduct(_ context.Context, limit int) ([]repository.ProductIssueCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byID := map[uuid.UUID]*repository.ProductIssueCount{}
	for _, c := range r.s.checks {
		if !c.Status.IsIssue() {
			continue
		}
		p, ok := r.s.products[c.ProductID]
		if !ok {
			continue
		}
		row, ok := byID[p.ID]
		if !ok {
			row = &repository.ProductIssueCount{ProductID: p.ID, ProductName: p.Name, SKU: p.SKU}
			byID[p.ID] = row
		}
		if c.Status == model.QualityPoor {
			row.PoorCount++
		} else {
			row.CriticalCount++
		}
		row.TotalIssues++
	}
	out := make([]repository.ProductIssueCount, 0, len(byID))
	for _, row := range byID {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalIssues != out[j].TotalIssues {
			return out[i].TotalIssues > out[j].TotalIssues
		}
		return out[i].ProductName < out[j].ProductName
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
