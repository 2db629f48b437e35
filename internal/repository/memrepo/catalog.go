package memrepo

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
)

type categoryRepo struct{ s *Store }

func (r *categoryRepo) Create(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.categoryNameTaken(c.Name, uuid.Nil) {
		return repository.ErrDuplicate
	}
	r.s.stamp(&c.BaseModel, true)
	r.s.categories[c.ID] = *c
	return nil
}

func (s *Store) categoryNameTaken(name string, except uuid.UUID) bool {
	for id, c := range s.categories {
		if id != except && c.Name == name {
			return true
		}
	}
	return false
}

func (r *categoryRepo) FindAll(_ context.Context, f repository.CategoryFilter) ([]model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Category{}
	for _, c := range r.s.categories {
		if f.Name != "" && !contains(c.Name, f.Name) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, f.Page), nil
}

func (r *categoryRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *categoryRepo) FindByName(_ context.Context, name string) (*model.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, c := range r.s.categories {
		if c.Name == name {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *categoryRepo) Update(_ context.Context, c *model.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return repository.ErrNotFound
	}
	if r.s.categoryNameTaken(c.Name, c.ID) {
		return repository.ErrDuplicate
	}
	r.s.stamp(&c.BaseModel, false)
	r.s.categories[c.ID] = *c
	return nil
}

func (r *categoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return repository.ErrNotFound
	}
	for _, p := range r.s.products {
		if p.CategoryID == id {
			return repository.ErrInUse
		}
	}
	for _, t := range r.s.trends {
		if t.CategoryID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.categories, id)
	return nil
}

func (r *categoryRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.categories)), nil
}

type productRepo struct{ s *Store }

func (s *Store) insertProduct(p *model.Product) error {
	if _, ok := s.categories[p.CategoryID]; !ok {
		return repository.ErrInUse
	}
	for _, other := range s.products {
		if other.SKU == p.SKU {
			return repository.ErrDuplicate
		}
	}
	s.stamp(&p.BaseModel, true)
	stored := *p
	stored.Category = nil
	s.products[p.ID] = stored
	return nil
}

func (r *productRepo) Create(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.insertProduct(p)
}

func (r *productRepo) CreateWithStock(_ context.Context, p *model.Product, stock *model.StockItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.insertProduct(p); err != nil {
		return err
	}
	stock.ProductID = p.ID
	r.s.insertStock(stock)
	return nil
}

// withCategory returns a copy of p with its category attached.
func (s *Store) withCategory(p model.Product) model.Product {
	if c, ok := s.categories[p.CategoryID]; ok {
		p.Category = &c
	}
	return p
}

func (r *productRepo) FindAll(_ context.Context, f repository.ProductFilter) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := []model.Product{}
	for _, p := range r.s.products {
		if f.Name != "" && !contains(p.Name, f.Name) {
			continue
		}
		if f.CategoryID != nil && p.CategoryID != *f.CategoryID {
			continue
		}
		out = append(out, r.s.withCategory(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return window(out, f.Page), nil
}

func (r *productRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	p = r.s.withCategory(p)
	return &p, nil
}

func (r *productRepo) FindBySKU(_ context.Context, sku string) (*model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, p := range r.s.products {
		if p.SKU == sku {
			p := p
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *productRepo) FindWithoutStock(_ context.Context) ([]model.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	stocked := map[uuid.UUID]bool{}
	for _, it := range r.s.stock {
		stocked[it.ProductID] = true
	}
	out := []model.Product{}
	for _, p := range r.s.products {
		if !stocked[p.ID] {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *productRepo) Update(_ context.Context, p *model.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[p.ID]; !ok {
		return repository.ErrNotFound
	}
	if _, ok := r.s.categories[p.CategoryID]; !ok {
		return repository.ErrInUse
	}
	for id, other := range r.s.products {
		if id != p.ID && other.SKU == p.SKU {
			return repository.ErrDuplicate
		}
	}
	r.s.stamp(&p.BaseModel, false)
	stored := *p
	stored.Category = nil
	r.s.products[p.ID] = stored
	return nil
}

func (r *productRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return repository.ErrNotFound
	}
	for _, it := range r.s.stock {
		if it.ProductID == id {
			return repository.ErrInUse
		}
	}
	for _, c := range r.s.checks {
		if c.ProductID == id {
			return repository.ErrInUse
		}
	}
	for _, f := range r.s.forecasts {
		if f.ProductID == id {
			return repository.ErrInUse
		}
	}
	delete(r.s.products, id)
	return nil
}

func (r *productRepo) Count(_ context.Context) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return int64(len(r.s.products)), nil
}

func (r *productRepo) CountByCategory(_ context.Context, categoryID uuid.UUID) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var n int64
	for _, p := range r.s.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}
