package order

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"storefront/internal/domain"
)

type postgresRepo struct {
	pool   *pgxpool.Pool
	logger logrus.FieldLogger
}

func NewPostgres(pool *pgxpool.Pool, logger logrus.FieldLogger) Repository {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &postgresRepo{pool: pool, logger: logger}
}

func (r *postgresRepo) Place(ctx context.Context, in PlaceInput, price Pricer) (*domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	lines := make([]domain.CartLine, 0, len(in.Lines))
	for _, req := range in.Lines {
		if _, err := uuid.Parse(req.ProductID); err != nil {
			return nil, fmt.Errorf("%w: unknown product %s", domain.ErrInvalidOrder, req.ProductID)
		}
		var line domain.CartLine
		var priceCents int64
		var stock int
		err := tx.QueryRow(ctx, `
SELECT id::text, sku, name, price_cents, stock
FROM products
WHERE id = $1
FOR UPDATE
`, req.ProductID).Scan(&line.ProductID, &line.SKU, &line.Name, &priceCents, &stock)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%w: unknown product %s", domain.ErrInvalidOrder, req.ProductID)
			}
			return nil, err
		}
		if stock < req.Quantity {
			r.logger.Infof("order repo: stock conflict product_id=%s want=%d have=%d", req.ProductID, req.Quantity, stock)
			return nil, fmt.Errorf("%w: %s has %d left", domain.ErrStockConflict, line.Name, stock)
		}
		if _, err := tx.Exec(ctx, `UPDATE products SET stock = stock - $1 WHERE id = $2`, req.Quantity, req.ProductID); err != nil {
			return nil, err
		}
		line.UnitPrice = domain.FromCents(priceCents)
		line.Quantity = req.Quantity
		line.Variant = req.Variant
		lines = append(lines, line)
	}

	o := in.Order
	o.Lines = lines
	o.Pricing = price(lines)

	err = tx.QueryRow(ctx, `
INSERT INTO orders (order_number, session_id, shipping_address, payment_method, transaction_reference, notes,
    payment_status, payment_proof_location, tracking_number, subtotal_cents, tax_cents, shipping_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, NULLIF($8, ''), $9, $10, $11, $12, $13)
RETURNING id::text, created_at
`,
		o.OrderNumber,
		o.SessionID,
		o.ShippingAddress,
		o.PaymentMethod,
		o.TransactionReference,
		o.Notes,
		o.PaymentStatus,
		o.PaymentProofLocation,
		o.TrackingNumber,
		domain.ToCents(o.Pricing.Subtotal),
		domain.ToCents(o.Pricing.Tax),
		domain.ToCents(o.Pricing.Shipping),
		domain.ToCents(o.Pricing.Total),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}

	for i, line := range lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_lines (order_id, position, product_id, sku, name, size, color, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
`, o.ID, i, line.ProductID, line.SKU, line.Name, line.Variant.Size, line.Variant.Color, line.Quantity,
			domain.ToCents(line.UnitPrice), domain.ToCents(line.Total())); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	r.logger.Infof("order repo: placed order_number=%s lines=%d total=%s", o.OrderNumber, len(lines), o.Pricing.Total.StringFixed(2))
	return &o, nil
}

func (r *postgresRepo) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	const q = `
SELECT id::text, order_number, session_id, shipping_address, payment_method, transaction_reference, COALESCE(notes, ''),
    payment_status, COALESCE(payment_proof_location, ''), tracking_number,
    subtotal_cents, tax_cents, shipping_cents, total_cents, created_at
FROM orders
WHERE order_number = $1
`
	var o domain.Order
	var subtotal, tax, shipping, total int64
	err := r.pool.QueryRow(ctx, q, orderNumber).Scan(
		&o.ID,
		&o.OrderNumber,
		&o.SessionID,
		&o.ShippingAddress,
		&o.PaymentMethod,
		&o.TransactionReference,
		&o.Notes,
		&o.PaymentStatus,
		&o.PaymentProofLocation,
		&o.TrackingNumber,
		&subtotal,
		&tax,
		&shipping,
		&total,
		&o.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	o.Pricing = domain.Pricing{
		Subtotal: domain.FromCents(subtotal),
		Tax:      domain.FromCents(tax),
		Shipping: domain.FromCents(shipping),
		Total:    domain.FromCents(total),
	}

	rows, err := r.pool.Query(ctx, `
SELECT id::text, product_id::text, sku, name, size, color, quantity, unit_price_cents
FROM order_lines
WHERE order_id = $1
ORDER BY position ASC
`, o.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.Lines = []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		var unit int64
		if err := rows.Scan(&line.ID, &line.ProductID, &line.SKU, &line.Name, &line.Variant.Size, &line.Variant.Color, &line.Quantity, &unit); err != nil {
			return nil, err
		}
		line.UnitPrice = domain.FromCents(unit)
		o.Lines = append(o.Lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &o, nil
}
