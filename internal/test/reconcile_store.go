package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/domain/repository"
)

// ReconcileStore is an in-memory unit of work for state-machine tests. Each
// Reconcile call snapshots the whole state and restores it when the function
// fails, mirroring transactional rollback.
type ReconcileStore struct {
	mu sync.Mutex

	Orders    map[int64]*model.Order
	Variants  map[int64]*model.ProductVariant
	Refunds   map[int64]*model.Refund
	CartItems map[int64]int

	Processed map[string]model.EventType

	// Fail injects an error for the named operation.
	Fail map[string]error

	nextRefundID int64
}

// NewReconcileStore returns an empty store.
func NewReconcileStore() *ReconcileStore {
	return &ReconcileStore{
		Orders:    make(map[int64]*model.Order),
		Variants:  make(map[int64]*model.ProductVariant),
		Refunds:   make(map[int64]*model.Refund),
		CartItems: make(map[int64]int),
		Processed: make(map[string]model.EventType),
		Fail:      make(map[string]error),
	}
}

// AddOrder stores a deep copy of the order.
func (s *ReconcileStore) AddOrder(order *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Orders[order.ID] = copyOrder(order)
}

// AddVariant stores a copy of the variant.
func (s *ReconcileStore) AddVariant(v *model.ProductVariant) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *v
	s.Variants[v.ID] = &clone
}

// Order returns a deep copy of the stored order.
func (s *ReconcileStore) Order(id int64) *model.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[id]
	if !ok {
		return nil
	}
	return copyOrder(order)
}

// Variant returns a copy of the stored variant.
func (s *ReconcileStore) Variant(id int64) *model.ProductVariant {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.Variants[id]
	if !ok {
		return nil
	}
	clone := *v
	return &clone
}

// RefundList returns copies of all refund records.
func (s *ReconcileStore) RefundList() []model.Refund {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Refund, 0, len(s.Refunds))
	for _, r := range s.Refunds {
		out = append(out, *r)
	}
	return out
}

// Reconcile runs fn against the store, rolling every mutation back when fn
// returns an error.
func (s *ReconcileStore) Reconcile(ctx context.Context, fn func(repository.ReconcileTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.Fail["Reconcile"]; err != nil {
		return err
	}

	snapshot := s.snapshot()
	if err := fn(&storeTx{store: s}); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type storeState struct {
	orders       map[int64]*model.Order
	variants     map[int64]*model.ProductVariant
	refunds      map[int64]*model.Refund
	cartItems    map[int64]int
	processed    map[string]model.EventType
	nextRefundID int64
}

func (s *ReconcileStore) snapshot() storeState {
	st := storeState{
		orders:       make(map[int64]*model.Order, len(s.Orders)),
		variants:     make(map[int64]*model.ProductVariant, len(s.Variants)),
		refunds:      make(map[int64]*model.Refund, len(s.Refunds)),
		cartItems:    make(map[int64]int, len(s.CartItems)),
		processed:    make(map[string]model.EventType, len(s.Processed)),
		nextRefundID: s.nextRefundID,
	}
	for id, o := range s.Orders {
		st.orders[id] = copyOrder(o)
	}
	for id, v := range s.Variants {
		clone := *v
		st.variants[id] = &clone
	}
	for id, r := range s.Refunds {
		clone := *r
		st.refunds[id] = &clone
	}
	for id, n := range s.CartItems {
		st.cartItems[id] = n
	}
	for id, t := range s.Processed {
		st.processed[id] = t
	}
	return st
}

func (s *ReconcileStore) restore(st storeState) {
	s.Orders = st.orders
	s.Variants = st.variants
	s.Refunds = st.refunds
	s.CartItems = st.cartItems
	s.Processed = st.processed
	s.nextRefundID = st.nextRefundID
}

func copyOrder(order *model.Order) *model.Order {
	clone := *order
	if order.UserID != nil {
		id := *order.UserID
		clone.UserID = &id
	}
	if order.PaidAt != nil {
		t := *order.PaidAt
		clone.PaidAt = &t
	}
	if order.CancelledAt != nil {
		t := *order.CancelledAt
		clone.CancelledAt = &t
	}
	clone.Items = make([]model.OrderItem, len(order.Items))
	for i, item := range order.Items {
		clone.Items[i] = item
		if item.Variant != nil {
			v := *item.Variant
			clone.Items[i].Variant = &v
		}
	}
	return &clone
}

type storeTx struct {
	store *ReconcileStore
}

func (t *storeTx) fail(op string) error {
	return t.store.Fail[op]
}

func (t *storeTx) MarkEventProcessed(ctx context.Context, eventID string, eventType model.EventType) (bool, error) {
	if err := t.fail("MarkEventProcessed"); err != nil {
		return false, err
	}
	if _, ok := t.store.Processed[eventID]; ok {
		return false, nil
	}
	t.store.Processed[eventID] = eventType
	return true, nil
}

func (t *storeTx) FindOrderIDByCheckoutSession(ctx context.Context, sessionID string) (int64, error) {
	if err := t.fail("FindOrderIDByCheckoutSession"); err != nil {
		return 0, err
	}
	for _, o := range t.store.Orders {
		if o.CheckoutSessionID == sessionID {
			return o.ID, nil
		}
	}
	return 0, domainErrors.ErrNotFound
}

func (t *storeTx) FindOrderIDByPaymentIntent(ctx context.Context, intentID string) (int64, error) {
	if err := t.fail("FindOrderIDByPaymentIntent"); err != nil {
		return 0, err
	}
	for _, o := range t.store.Orders {
		if o.PaymentIntentID == intentID {
			return o.ID, nil
		}
	}
	return 0, domainErrors.ErrNotFound
}

func (t *storeTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*model.Order, error) {
	if err := t.fail("GetOrderForUpdate"); err != nil {
		return nil, err
	}
	order, ok := t.store.Orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	loaded := copyOrder(order)
	for i := range loaded.Items {
		if v, ok := t.store.Variants[loaded.Items[i].VariantID]; ok {
			clone := *v
			loaded.Items[i].Variant = &clone
		} else {
			loaded.Items[i].Variant = nil
		}
	}
	return loaded, nil
}

func (t *storeTx) UpdateOrder(ctx context.Context, orderID int64, patch repository.OrderPatch) error {
	if err := t.fail("UpdateOrder"); err != nil {
		return err
	}
	order, ok := t.store.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if patch.Status != nil {
		order.Status = *patch.Status
	}
	if patch.PaymentStatus != nil {
		order.PaymentStatus = *patch.PaymentStatus
	}
	if patch.PaymentIntentID != nil {
		order.PaymentIntentID = *patch.PaymentIntentID
	}
	if patch.CheckoutSessionID != nil {
		order.CheckoutSessionID = *patch.CheckoutSessionID
	}
	if patch.CustomerID != nil {
		order.CustomerID = *patch.CustomerID
	}
	if patch.ShippingCost != nil {
		order.ShippingCost = *patch.ShippingCost
	}
	if patch.ShippingMethod != nil {
		order.ShippingMethod = *patch.ShippingMethod
	}
	if patch.PaidAt != nil {
		at := *patch.PaidAt
		order.PaidAt = &at
	}
	if patch.CancelledAt != nil {
		at := *patch.CancelledAt
		order.CancelledAt = &at
	}
	order.UpdatedAt = time.Now()
	return nil
}

func (t *storeTx) AdjustVariantInventory(ctx context.Context, variantID int64, delta int64) (int64, error) {
	if err := t.fail("AdjustVariantInventory"); err != nil {
		return 0, err
	}
	v, ok := t.store.Variants[variantID]
	if !ok {
		return 0, domainErrors.ErrNotFound
	}
	if v.Inventory+delta < 0 {
		return 0, domainErrors.ErrStockConflict
	}
	v.Inventory += delta
	return v.Inventory, nil
}

func (t *storeTx) DeactivateVariant(ctx context.Context, variantID int64) error {
	if err := t.fail("DeactivateVariant"); err != nil {
		return err
	}
	v, ok := t.store.Variants[variantID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	v.IsActive = false
	return nil
}

func (t *storeTx) DeleteCartItems(ctx context.Context, userID int64) error {
	if err := t.fail("DeleteCartItems"); err != nil {
		return err
	}
	delete(t.store.CartItems, userID)
	return nil
}

func (t *storeTx) CreateRefund(ctx context.Context, fields repository.RefundFields) (*model.Refund, error) {
	if err := t.fail("CreateRefund"); err != nil {
		return nil, err
	}
	if fields.ProviderRefundID != nil {
		for _, r := range t.store.Refunds {
			if r.ProviderRefundID != nil && *r.ProviderRefundID == *fields.ProviderRefundID {
				return nil, domainErrors.ErrAlreadyExists
			}
		}
	}
	t.store.nextRefundID++
	refund := &model.Refund{
		ID:        t.store.nextRefundID,
		OrderID:   fields.OrderID,
		Amount:    fields.Amount,
		Currency:  fields.Currency,
		Status:    fields.Status,
		Note:      fields.Note,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if fields.ProviderRefundID != nil {
		id := *fields.ProviderRefundID
		refund.ProviderRefundID = &id
	}
	t.store.Refunds[refund.ID] = refund
	clone := *refund
	return &clone, nil
}

func (t *storeTx) UpdateRefund(ctx context.Context, refundID int64, patch repository.RefundPatch) error {
	if err := t.fail("UpdateRefund"); err != nil {
		return err
	}
	refund, ok := t.store.Refunds[refundID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if patch.Status != nil {
		refund.Status = *patch.Status
	}
	if patch.ProviderRefundID != nil {
		id := *patch.ProviderRefundID
		refund.ProviderRefundID = &id
	}
	if patch.Note != nil {
		refund.Note = *patch.Note
	}
	refund.UpdatedAt = time.Now()
	return nil
}

func (t *storeTx) FindRefundByProviderID(ctx context.Context, providerRefundID string) (*model.Refund, error) {
	if err := t.fail("FindRefundByProviderID"); err != nil {
		return nil, err
	}
	for _, r := range t.store.Refunds {
		if r.ProviderRefundID != nil && *r.ProviderRefundID == providerRefundID {
			clone := *r
			return &clone, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

func (t *storeTx) SumCompletedRefunds(ctx context.Context, orderID int64) (int64, error) {
	if err := t.fail("SumCompletedRefunds"); err != nil {
		return 0, err
	}
	var total int64
	for _, r := range t.store.Refunds {
		if r.OrderID == orderID && r.Status == model.RefundStatusCompleted {
			total += r.Amount
		}
	}
	return total, nil
}
