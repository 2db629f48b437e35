package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"qualistock/internal/model"
	"qualistock/internal/repository"
	"qualistock/internal/ws"
)

type StockService interface {
	Create(ctx context.Context, actor Actor, req *StockItemRequest) (*model.StockItem, error)
	// Upsert updates the product's first stock item or creates one.
	Upsert(ctx context.Context, actor Actor, req *StockItemRequest) (*model.StockItem, error)
	List(ctx context.Context, q StockQuery) ([]model.StockItem, error)
	Get(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	Update(ctx context.Context, actor Actor, id uuid.UUID, req *StockItemUpdate) (*model.StockItem, error)
	Delete(ctx context.Context, actor Actor, id uuid.UUID) error
	// Clear empties the item but keeps the row.
	Clear(ctx context.Context, actor Actor, id uuid.UUID) (*model.StockItem, error)
	SetZero(ctx context.Context, actor Actor, productID uuid.UUID, location, batch string) (*model.StockItem, error)
	CountExpiringSoon(ctx context.Context, days int) (int64, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
	InitializeMissing(ctx context.Context) (int, error)
	Movements(ctx context.Context, f repository.MovementFilter) ([]model.StockMovement, error)
}

type StockItemRequest struct {
	ProductID         uuid.UUID  `json:"product_id" validate:"uuid_required"`
	Quantity          int        `json:"quantity" validate:"gte=0"`
	Location          string     `json:"location" validate:"max=255"`
	BatchNumber       string     `json:"batch_number" validate:"max=100"`
	ManufacturingDate *time.Time `json:"manufacturing_date"`
	ExpirationDate    *time.Time `json:"expiration_date"`
}

// StockItemUpdate changes only the fields that are present.
type StockItemUpdate struct {
	ProductID         *uuid.UUID `json:"product_id"`
	Quantity          *int       `json:"quantity" validate:"omitempty,gte=0"`
	Location          *string    `json:"location" validate:"omitempty,max=255"`
	BatchNumber       *string    `json:"batch_number" validate:"omitempty,max=100"`
	ManufacturingDate *time.Time `json:"manufacturing_date"`
	ExpirationDate    *time.Time `json:"expiration_date"`
}

type StockQuery struct {
	Location     string
	ProductID    *uuid.UUID
	MinQuantity  *int
	LowStock     bool
	ExpiringSoon bool
	repository.Page
}

type stockService struct {
	stock     repository.StockItemRepository
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	deps      Deps
}

func NewStockService(stock repository.StockItemRepository, products repository.ProductRepository, movements repository.StockMovementRepository, deps Deps) StockService {
	return &stockService{stock: stock, products: products, movements: movements, deps: deps.withDefaults()}
}

func (s *stockService) product(ctx context.Context, id uuid.UUID) (*model.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Product")
	}
	return product, nil
}

func (s *stockService) Create(ctx context.Context, actor Actor, req *StockItemRequest) (*model.StockItem, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	product, err := s.product(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	item := &model.StockItem{}
	applyStockRequest(item, req)
	item.Touch(actor.Audit())
	if err := s.stock.Create(ctx, item); err != nil {
		return nil, writeErr(err, "Stock item")
	}
	s.notify(ctx, actor, "stock_item_created", item, product, 0)
	return item, nil
}

func applyStockRequest(item *model.StockItem, req *StockItemRequest) {
	item.ProductID = req.ProductID
	item.Quantity = req.Quantity
	item.Location = strings.TrimSpace(req.Location)
	item.BatchNumber = strings.TrimSpace(req.BatchNumber)
	item.ManufacturingDate = req.ManufacturingDate
	item.ExpirationDate = req.ExpirationDate
}

func (s *stockService) Upsert(ctx context.Context, actor Actor, req *StockItemRequest) (*model.StockItem, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	product, err := s.product(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	var previous int
	action := "stock_item_created"
	item, err := s.stock.UpsertForProduct(ctx, product.ID, model.ReasonUpserted, func(item *model.StockItem, existed bool) {
		if existed {
			previous = item.Quantity
			action = "stock_item_updated"
		}
		applyStockRequest(item, req)
		item.Touch(actor.Audit())
	})
	if err != nil {
		return nil, writeErr(err, "Stock item")
	}
	s.notify(ctx, actor, action, item, product, previous)
	return item, nil
}

func (s *stockService) List(ctx context.Context, q StockQuery) ([]model.StockItem, error) {
	f := repository.StockItemFilter{
		Location:    q.Location,
		ProductID:   q.ProductID,
		MinQuantity: q.MinQuantity,
		Page:        q.Page,
	}
	if q.LowStock {
		threshold := s.deps.Thresholds.LowStock
		f.MaxQuantity = &threshold
	}
	if q.ExpiringSoon {
		now := s.deps.Now()
		until := now.Add(days(s.deps.Thresholds.ExpiringSoonDays))
		f.ExpiresAfter, f.ExpiresBefore = &now, &until
	}
	return s.stock.FindAll(ctx, f)
}

func (s *stockService) Get(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	item, err := s.stock.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr(err, "Stock item")
	}
	return item, nil
}

func (s *stockService) Update(ctx context.Context, actor Actor, id uuid.UUID, req *StockItemUpdate) (*model.StockItem, error) {
	if err := validate(req); err != nil {
		return nil, err
	}
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.ProductID != nil {
		item.ProductID = *req.ProductID
	}
	product, err := s.product(ctx, item.ProductID)
	if err != nil {
		return nil, err
	}

	previous := item.Quantity
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Location != nil {
		item.Location = strings.TrimSpace(*req.Location)
	}
	if req.BatchNumber != nil {
		item.BatchNumber = strings.TrimSpace(*req.BatchNumber)
	}
	if req.ManufacturingDate != nil {
		item.ManufacturingDate = req.ManufacturingDate
	}
	if req.ExpirationDate != nil {
		item.ExpirationDate = req.ExpirationDate
	}
	item.Touch(actor.Audit())
	if err := s.stock.Update(ctx, item, previous, model.ReasonUpdated); err != nil {
		return nil, writeErr(err, "Stock item")
	}
	s.notify(ctx, actor, "stock_item_updated", item, product, previous)
	return item, nil
}

func (s *stockService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	item.Touch(actor.Audit())
	if err := s.stock.Delete(ctx, item); err != nil {
		return writeErr(err, "Stock item")
	}
	s.notify(ctx, actor, "stock_item_deleted", item, nil, item.Quantity)
	return nil
}

func (s *stockService) Clear(ctx context.Context, actor Actor, id uuid.UUID) (*model.StockItem, error) {
	item, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if item.Quantity == 0 {
		return item, nil
	}
	previous := item.Quantity
	item.Clear()
	item.Touch(actor.Audit())
	if err := s.stock.Update(ctx, item, previous, model.ReasonCleared); err != nil {
		return nil, writeErr(err, "Stock item")
	}
	s.notify(ctx, actor, "stock_item_cleared", item, nil, previous)
	return item, nil
}

func (s *stockService) SetZero(ctx context.Context, actor Actor, productID uuid.UUID, location, batch string) (*model.StockItem, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(location) == "" {
		location = model.PlaceholderLocation
	}
	if strings.TrimSpace(batch) == "" {
		batch = model.PlaceholderBatch
	}
	var previous int
	item, err := s.stock.UpsertForProduct(ctx, product.ID, model.ReasonZeroed, func(item *model.StockItem, existed bool) {
		if existed {
			previous = item.Quantity
		} else {
			item.Location = location
			item.BatchNumber = batch
		}
		item.Quantity = 0
		item.Touch(actor.Audit())
	})
	if err != nil {
		return nil, writeErr(err, "Stock item")
	}
	s.notify(ctx, actor, "stock_zeroed", item, product, previous)
	return item, nil
}

func (s *stockService) CountExpiringSoon(ctx context.Context, n int) (int64, error) {
	if n <= 0 {
		n = s.deps.Thresholds.ExpiringSoonDays
	}
	now := s.deps.Now()
	until := now.Add(days(n))
	return s.stock.Count(ctx, repository.StockItemFilter{ExpiresAfter: &now, ExpiresBefore: &until})
}

func (s *stockService) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	if threshold <= 0 {
		threshold = s.deps.Thresholds.LowStock
	}
	return s.stock.Count(ctx, repository.StockItemFilter{MaxQuantity: &threshold})
}

// InitializeMissing gives every product without stock a placeholder row.
func (s *stockService) InitializeMissing(ctx context.Context) (int, error) {
	products, err := s.products.FindWithoutStock(ctx)
	if err != nil {
		return 0, err
	}
	created := 0
	for _, p := range products {
		item := model.NewPlaceholderStock(p.ID)
		item.Touch(SystemActor.Audit())
		if err := s.stock.Create(ctx, item); err != nil {
			return created, fmt.Errorf("initialize stock for %s: %w", p.SKU, err)
		}
		created++
	}
	if created > 0 {
		s.deps.changed(ctx, ws.Event{
			Type:    ws.EventStockUpdate,
			Action:  "stock_initialized",
			Data:    map[string]int{"created": created},
			Message: fmt.Sprintf("created placeholder stock for %d products", created),
		})
	}
	return created, nil
}

func (s *stockService) Movements(ctx context.Context, f repository.MovementFilter) ([]model.StockMovement, error) {
	return s.movements.FindAll(ctx, f)
}

func (s *stockService) notify(ctx context.Context, actor Actor, action string, item *model.StockItem, product *model.Product, previous int) {
	data := map[string]interface{}{
		"id":           item.ID,
		"product_id":   item.ProductID,
		"old_quantity": previous,
		"new_quantity": item.Quantity,
		"location":     item.Location,
		"batch_number": item.BatchNumber,
	}
	if action == "stock_item_deleted" {
		data["new_quantity"] = 0
	}
	message := fmt.Sprintf("%s %s", actor.Username, strings.ReplaceAll(action, "_", " "))
	if product != nil {
		data["product"] = map[string]interface{}{"name": product.Name, "sku": product.SKU}
		message = fmt.Sprintf("%s: %s '%s'", actor.Username, strings.ReplaceAll(action, "_", " "), product.Name)
	}
	s.deps.changed(ctx, ws.Event{
		Type:    ws.EventStockUpdate,
		Action:  action,
		Data:    data,
		User:    actor.eventUser(),
		Message: message,
	})
}
