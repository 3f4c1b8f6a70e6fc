package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/Adrien490/synclune-sub005/internal/domain/errors"
	"github.com/Adrien490/synclune-sub005/internal/domain/model"
	"github.com/Adrien490/synclune-sub005/internal/domain/repository"
)

// pgxPool is the subset of pgxpool.Pool the storage relies on; it lets tests
// substitute a pgxmock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage persists orders, inventory counters, refunds and the webhook dedup
// ledger in PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id SERIAL PRIMARY KEY,
            number TEXT UNIQUE NOT NULL,
            user_id BIGINT,
            status TEXT NOT NULL DEFAULT 'PENDING',
            payment_status TEXT NOT NULL DEFAULT 'PENDING',
            subtotal BIGINT NOT NULL DEFAULT 0,
            discount BIGINT NOT NULL DEFAULT 0,
            shipping_cost BIGINT NOT NULL DEFAULT 0,
            tax BIGINT NOT NULL DEFAULT 0,
            total BIGINT NOT NULL DEFAULT 0,
            currency TEXT NOT NULL DEFAULT 'eur',
            shipping_method TEXT NOT NULL DEFAULT '',
            shipping_address TEXT NOT NULL DEFAULT '',
            payment_intent_id TEXT NOT NULL DEFAULT '',
            checkout_session_id TEXT NOT NULL DEFAULT '',
            customer_id TEXT NOT NULL DEFAULT '',
            paid_at TIMESTAMPTZ,
            cancelled_at TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS order_items (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            variant_id BIGINT NOT NULL,
            title TEXT NOT NULL,
            attributes TEXT NOT NULL DEFAULT '',
            quantity BIGINT NOT NULL,
            unit_price BIGINT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS product_variants (
            id SERIAL PRIMARY KEY,
            product_id BIGINT NOT NULL,
            sku TEXT NOT NULL DEFAULT '',
            inventory BIGINT NOT NULL DEFAULT 0 CHECK (inventory >= 0),
            is_active BOOLEAN NOT NULL DEFAULT TRUE
        )`,
		`CREATE TABLE IF NOT EXISTS cart_items (
            id SERIAL PRIMARY KEY,
            user_id BIGINT NOT NULL,
            variant_id BIGINT NOT NULL,
            quantity BIGINT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS refunds (
            id SERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            provider_refund_id TEXT,
            amount BIGINT NOT NULL,
            currency TEXT NOT NULL,
            status TEXT NOT NULL,
            note TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE TABLE IF NOT EXISTS webhook_events (
            provider_event_id TEXT PRIMARY KEY,
            event_type TEXT NOT NULL,
            received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_refunds_provider ON refunds(provider_refund_id) WHERE provider_refund_id IS NOT NULL`,
		`CREATE INDEX IF NOT EXISTS idx_orders_checkout_session ON orders(checkout_session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_payment_intent ON orders(payment_intent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_cart_items_user ON cart_items(user_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// Reconcile runs fn inside a repeatable-read transaction. The order row lock
// taken by GetOrderForUpdate serializes concurrent transitions for the same
// order; a failed fn rolls everything back including the dedup ledger entry.
func (s *Storage) Reconcile(ctx context.Context, fn func(repository.ReconcileTx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(&reconcileTx{tx: tx})
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}

// reconcileTx implements repository.ReconcileTx on top of a pgx transaction.
type reconcileTx struct {
	tx pgx.Tx
}

func (r *reconcileTx) MarkEventProcessed(ctx context.Context, eventID string, eventType model.EventType) (bool, error) {
	const query = `INSERT INTO webhook_events (provider_event_id, event_type)
                   VALUES ($1, $2)
                   ON CONFLICT (provider_event_id) DO NOTHING`
	tag, err := r.tx.Exec(ctx, query, eventID, string(eventType))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *reconcileTx) FindOrderIDByCheckoutSession(ctx context.Context, sessionID string) (int64, error) {
	return r.findOrderID(ctx, `SELECT id FROM orders WHERE checkout_session_id=$1`, sessionID)
}

func (r *reconcileTx) FindOrderIDByPaymentIntent(ctx context.Context, intentID string) (int64, error) {
	return r.findOrderID(ctx, `SELECT id FROM orders WHERE payment_intent_id=$1`, intentID)
}

func (r *reconcileTx) findOrderID(ctx context.Context, query, ref string) (int64, error) {
	if ref == "" {
		return 0, domainErrors.ErrNotFound
	}
	var id int64
	err := r.tx.QueryRow(ctx, query, ref).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrNotFound
		}
		return 0, err
	}
	return id, nil
}

func (r *reconcileTx) GetOrderForUpdate(ctx context.Context, orderID int64) (*model.Order, error) {
	const orderQuery = `SELECT id, number, user_id, status, payment_status,
                               subtotal, discount, shipping_cost, tax, total, currency,
                               shipping_method, shipping_address,
                               payment_intent_id, checkout_session_id, customer_id,
                               paid_at, cancelled_at, created_at, updated_at
                        FROM orders WHERE id=$1 FOR UPDATE`

	var o model.Order
	err := r.tx.QueryRow(ctx, orderQuery, orderID).Scan(
		&o.ID, &o.Number, &o.UserID, &o.Status, &o.PaymentStatus,
		&o.Subtotal, &o.Discount, &o.ShippingCost, &o.Tax, &o.Total, &o.Currency,
		&o.ShippingMethod, &o.ShippingAddress,
		&o.PaymentIntentID, &o.CheckoutSessionID, &o.CustomerID,
		&o.PaidAt, &o.CancelledAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}

	const itemsQuery = `SELECT i.id, i.order_id, i.variant_id, i.title, i.attributes, i.quantity, i.unit_price,
                               v.id, v.product_id, v.sku, v.inventory, v.is_active
                        FROM order_items i
                        LEFT JOIN product_variants v ON v.id = i.variant_id
                        WHERE i.order_id=$1 ORDER BY i.id`

	rows, err := r.tx.Query(ctx, itemsQuery, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		var (
			variantID *int64
			productID *int64
			sku       *string
			inventory *int64
			isActive  *bool
		)
		if err := rows.Scan(
			&item.ID, &item.OrderID, &item.VariantID, &item.Title, &item.Attributes, &item.Quantity, &item.UnitPrice,
			&variantID, &productID, &sku, &inventory, &isActive,
		); err != nil {
			return nil, err
		}
		if variantID != nil {
			item.Variant = &model.ProductVariant{
				ID:        *variantID,
				ProductID: *productID,
				SKU:       *sku,
				Inventory: *inventory,
				IsActive:  *isActive,
			}
		}
		o.Items = append(o.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &o, nil
}

func (r *reconcileTx) UpdateOrder(ctx context.Context, orderID int64, patch repository.OrderPatch) error {
	sets := []string{"updated_at=NOW()"}
	args := []any{orderID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.PaymentStatus != nil {
		add("payment_status", *patch.PaymentStatus)
	}
	if patch.PaymentIntentID != nil {
		add("payment_intent_id", *patch.PaymentIntentID)
	}
	if patch.CheckoutSessionID != nil {
		add("checkout_session_id", *patch.CheckoutSessionID)
	}
	if patch.CustomerID != nil {
		add("customer_id", *patch.CustomerID)
	}
	if patch.ShippingCost != nil {
		add("shipping_cost", *patch.ShippingCost)
	}
	if patch.ShippingMethod != nil {
		add("shipping_method", *patch.ShippingMethod)
	}
	if patch.PaidAt != nil {
		add("paid_at", *patch.PaidAt)
	}
	if patch.CancelledAt != nil {
		add("cancelled_at", *patch.CancelledAt)
	}

	query := fmt.Sprintf("UPDATE orders SET %s WHERE id=$1", strings.Join(sets, ", "))
	tag, err := r.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *reconcileTx) AdjustVariantInventory(ctx context.Context, variantID int64, delta int64) (int64, error) {
	const query = `UPDATE product_variants
                   SET inventory = inventory + $2
                   WHERE id=$1 AND inventory + $2 >= 0
                   RETURNING inventory`
	var inventory int64
	err := r.tx.QueryRow(ctx, query, variantID, delta).Scan(&inventory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("variant %d delta %d: %w", variantID, delta, domainErrors.ErrStockConflict)
		}
		return 0, err
	}
	return inventory, nil
}

func (r *reconcileTx) DeactivateVariant(ctx context.Context, variantID int64) error {
	const query = `UPDATE product_variants SET is_active=FALSE WHERE id=$1`
	tag, err := r.tx.Exec(ctx, query, variantID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *reconcileTx) DeleteCartItems(ctx context.Context, userID int64) error {
	const query = `DELETE FROM cart_items WHERE user_id=$1`
	_, err := r.tx.Exec(ctx, query, userID)
	return err
}

func (r *reconcileTx) CreateRefund(ctx context.Context, fields repository.RefundFields) (*model.Refund, error) {
	const query = `INSERT INTO refunds (order_id, provider_refund_id, amount, currency, status, note)
                   VALUES ($1, $2, $3, $4, $5, $6)
                   RETURNING id, created_at, updated_at`
	refund := model.Refund{
		OrderID:          fields.OrderID,
		ProviderRefundID: fields.ProviderRefundID,
		Amount:           fields.Amount,
		Currency:         fields.Currency,
		Status:           fields.Status,
		Note:             fields.Note,
	}
	err := r.tx.QueryRow(ctx, query,
		fields.OrderID, fields.ProviderRefundID, fields.Amount, fields.Currency, fields.Status, fields.Note,
	).Scan(&refund.ID, &refund.CreatedAt, &refund.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domainErrors.ErrAlreadyExists
		}
		return nil, err
	}
	return &refund, nil
}

func (r *reconcileTx) UpdateRefund(ctx context.Context, refundID int64, patch repository.RefundPatch) error {
	sets := []string{"updated_at=NOW()"}
	args := []any{refundID}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.ProviderRefundID != nil {
		add("provider_refund_id", *patch.ProviderRefundID)
	}
	if patch.Note != nil {
		add("note", *patch.Note)
	}

	query := fmt.Sprintf("UPDATE refunds SET %s WHERE id=$1", strings.Join(sets, ", "))
	tag, err := r.tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *reconcileTx) FindRefundByProviderID(ctx context.Context, providerRefundID string) (*model.Refund, error) {
	const query = `SELECT id, order_id, provider_refund_id, amount, currency, status, note, created_at, updated_at
                   FROM refunds WHERE provider_refund_id=$1`
	var refund model.Refund
	err := r.tx.QueryRow(ctx, query, providerRefundID).Scan(
		&refund.ID, &refund.OrderID, &refund.ProviderRefundID, &refund.Amount,
		&refund.Currency, &refund.Status, &refund.Note, &refund.CreatedAt, &refund.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &refund, nil
}

func (r *reconcileTx) SumCompletedRefunds(ctx context.Context, orderID int64) (int64, error) {
	const query = `SELECT COALESCE(SUM(amount), 0) FROM refunds WHERE order_id=$1 AND status=$2`
	var total int64
	if err := r.tx.QueryRow(ctx, query, orderID, model.RefundStatusCompleted).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
