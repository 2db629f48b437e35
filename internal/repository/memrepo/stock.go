package memrepo

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type stockItemRepo struct{ s *Store }

func (s *Store) insertStock(item *model.StockItem) {
	s.stamp(&item.BaseModel, true)
	stored := *item
	stored.Product = nil
	s.stock[item.ID] = stored
	s.record(model.NewMovement(item, 0, model.ReasonCreated, item.UpdatedBy))
}

func (s *Store) record(m *model.StockMovement) {
	if m == nil {
		return
	}
	s.stamp(&m.BaseModel, true)
	s.movements = append(s.movements, *m)
}

func (r *stockItemRepo) Create(_ context.Context, item *model.StockItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[item.ProductID]; !ok {
		return repository.ErrInUse
	}
	r.s.insertStock(item)
	return nil
}

func (r *stockItemRepo) Update(_ context.Context, item *model.StockItem, previousQty int, reason string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stock[item.ID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.products[item.ProductID]; !ok {
		return repository.ErrInUse
	}
	r.s.stamp(&item.BaseModel, false)
	stored := *item
	stored.Product = nil
	r.s.stock[item.ID] = stored
	r.s.record(model.NewMovement(item, previousQty, reason, item.UpdatedBy))
	return nil
}

func (r *stockItemRepo) Delete(_ context.Context, item *model.StockItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.stock[item.ID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.s.stock, item.ID)
	gone := *item
	gone.Quantity = 0
	r.s.record(model.NewMovement(&gone, item.Quantity, model.ReasonDeleted, item.UpdatedBy))
	return nil
}

func (r *stockItemRepo) UpsertForProduct(_ context.Context, productID uuid.UUID, reason string, fn repository.UpsertFunc) (*model.StockItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[productID]; !ok {
		return nil, repository.ErrInUse
	}
	items := r.s.stockOf(productID)
	if len(items) == 0 {
		item := model.StockItem{ProductID: productID}
		fn(&item, false)
		item.ProductID = productID
		r.s.stamp(&item.BaseModel, true)
		r.s.stock[item.ID] = item
		r.s.record(model.NewMovement(&item, 0, reason, item.UpdatedBy))
		return &item, nil
	}
	item := items[0]
	previous := item.Quantity
	fn(&item, true)
	item.ProductID = productID
	r.s.stamp(&item.BaseModel, false)
	r.s.stock[item.ID] = item
	r.s.record(model.NewMovement(&item, previous, reason, item.UpdatedBy))
	return &item, nil
}

// stockOf returns a product's items oldest first.
func (s *Store) stockOf(productID uuid.UUID) []model.StockItem {
	out := []model.StockItem{}
	for _, it := range s.stock {
		if it.ProductID == productID {
			out = append(out, it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func matchStock(it model.StockItem, f repository.StockItemFilter) bool {
	if f.Location != "" && !contains(it.Location, f.Location) {
		return false
	}
	if f.ProductID != nil && it.ProductID != *f.ProductID {
		return false
	}
	if f.MinQuantity != nil && it.Quantity < *f.MinQuantity {
		return false
	}
	if f.MaxQuantity != nil && it.Quantity >= *f.MaxQuantity {
		return false
	}
	if f.ExpiresAfter != nil || f.ExpiresBefore != nil {
		if it.ExpirationDate == nil {
			return false
		}
		if f.ExpiresAfter != nil && it.ExpirationDate.Before(*f.ExpiresAfter) {
			return false
		}
		if f.ExpiresBefore != nil && it.ExpirationDate.After(*f.ExpiresBefore) {
			return false
		}
	}
	return true
}

func (r *stockItemRepo) matching(f repository.StockItemFilter) []model.StockItem {
	out := []model.StockItem{}
	for _, it := range r.s.stock {
		if matchStock(it, f) {
			out = append(out, it)
		}
	}
	return out
}

func (r *stockItemRepo) FindAll(_ context.Context, f repository.StockItemFilter) ([]model.StockItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := r.matching(f)
	switch f.OrderBy {
	case "quantity":
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Quantity != out[j].Quantity {
				return out[i].Quantity < out[j].Quantity
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	case "expiration":
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].ExpirationDate, out[j].ExpirationDate
			if a == nil || b == nil {
				return a != nil
			}
			return a.Before(*b)
		})
	default:
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	}
	return window(out, f.Page), nil
}

func (r *stockItemRepo) Count(_ context.Context, f repository.StockItemFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.matching(f))), nil
}

func (r *stockItemRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	it, ok := r.s.stock[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &it, nil
}

func (r *stockItemRepo) FindByProduct(_ context.Context, productID uuid.UUID) ([]model.StockItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.stockOf(productID), nil
}

func (r *stockItemRepo) CountByProduct(_ context.Context, productID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.stockOf(productID))), nil
}

func (r *stockItemRepo) QuantityByProduct(_ context.Context) (map[uuid.UUID]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := map[uuid.UUID]int64{}
	for _, it := range r.s.stock {
		out[it.ProductID] += int64(it.Quantity)
	}
	return out, nil
}

func (r *stockItemRepo) expiring(f repository.ExpiringFilter) []repository.ExpiringItem {
	out := []repository.ExpiringItem{}
	for _, it := range r.s.stock {
		if it.ExpirationDate == nil || it.ExpirationDate.Before(f.From) || it.ExpirationDate.After(f.To) {
			continue
		}
		if f.ProductID != nil && it.ProductID != *f.ProductID {
			continue
		}
		p, ok := r.s.products[it.ProductID]
		if !ok {
			continue
		}
		c, ok := r.s.categories[p.CategoryID]
		if !ok {
			continue
		}
		if f.CategoryID != nil && c.ID != *f.CategoryID {
			continue
		}
		out = append(out, repository.ExpiringItem{
			StockItemID:    it.ID,
			BatchNumber:    it.BatchNumber,
			Quantity:       it.Quantity,
			ExpirationDate: *it.ExpirationDate,
			Location:       it.Location,
			ProductID:      p.ID,
			ProductName:    p.Name,
			SKU:            p.SKU,
			CategoryID:     c.ID,
			CategoryName:   c.Name,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExpirationDate.Before(out[j].ExpirationDate) })
	return out
}

func (r *stockItemRepo) FindExpiring(_ context.Context, f repository.ExpiringFilter) ([]repository.ExpiringItem, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return window(r.expiring(f), f.Page), nil
}

func (r *stockItemRepo) CountExpiring(_ context.Context, f repository.ExpiringFilter) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.expiring(f))), nil
}

func (r *stockItemRepo) CountExpiringByCategory(_ context.Context, from, to time.Time) ([]repository.CategoryCount, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	byID := map[uuid.UUID]*repository.CategoryCount{}
	for _, row := range r.expiring(repository.ExpiringFilter{From: from, To: to}) {
		cc, ok := byID[row.CategoryID]
		if !ok {
			cc = &repository.CategoryCount{CategoryID: row.CategoryID, CategoryName: row.CategoryName}
			byID[row.CategoryID] = cc
		}
		cc.Count++
	}
	out := make([]repository.CategoryCount, 0, len(byID))
	for _, cc := range byID {
		out = append(out, *cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryName < out[j].CategoryName })
	return out, nil
}

type movementRepo struct{ s *Store }

func (r *movementRepo) FindAll(_ context.Context, f repository.MovementFilter) ([]model.StockMovement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.StockMovement{}
	for i := len(r.s.movements) - 1; i >= 0; i-- {
		m := r.s.movements[i]
		if f.ProductID != nil && m.ProductID != *f.ProductID {
			continue
		}
		if f.StockItemID != nil && m.StockItemID != *f.StockItemID {
			continue
		}
		out = append(out, m)
	}
	return window(out, f.Page), nil
}

func (r *movementRepo) GetStockMovement(_ context.Context, startDate, endDate time.Time) ([]repository.StockMovementData, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var in []model.StockMovement
	for _, m := range r.s.movements {
		if m.CreatedAt.Before(startDate) || m.CreatedAt.After(endDate) {
			continue
		}
		in = append(in, m)
	}
	return repository.BucketMovements(in), nil
}
