package cart

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
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

func (r *postgresRepo) GetOrCreate(ctx context.Context, sessionID string) (*domain.Cart, error) {
	const q = `
INSERT INTO carts (session_id)
VALUES ($1)
ON CONFLICT (session_id) DO UPDATE SET updated_at = now()
RETURNING id::text, session_id, created_at
`
	var cart domain.Cart
	if err := r.pool.QueryRow(ctx, q, sessionID).Scan(&cart.ID, &cart.SessionID, &cart.CreatedAt); err != nil {
		r.logger.Errorf("cart repo: get-or-create session_id=%s error=%v", sessionID, err)
		return nil, fmt.Errorf("get or create cart: %w", err)
	}
	lines, err := r.lines(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Lines = lines
	cart.Recompute()
	return &cart, nil
}

func (r *postgresRepo) AddLine(ctx context.Context, cartID string, product domain.Product, variant domain.Variant, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var lineID string
	var existingQty int
	var unitPrice int64
	err = tx.QueryRow(ctx, `
SELECT id::text, quantity, unit_price_cents
FROM cart_lines
WHERE cart_id = $1 AND product_id = $2 AND lower(size) = lower($3) AND lower(color) = lower($4)
FOR UPDATE
`, cartID, product.ID, variant.Size, variant.Color).Scan(&lineID, &existingQty, &unitPrice)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err == nil {
		newQty := existingQty + quantity
		if _, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, total_cents = $2
WHERE id = $3
`, newQty, unitPrice*int64(newQty), lineID); err != nil {
			return err
		}
	} else {
		unitPrice = product.PriceCents
		if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (cart_id, product_id, size, color, quantity, unit_price_cents, total_cents)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, cartID, product.ID, variant.Size, variant.Color, quantity, unitPrice, unitPrice*int64(quantity)); err != nil {
			return err
		}
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	r.logger.Debugf("cart repo: add cart_id=%s product_id=%s qty=%d", cartID, product.ID, quantity)
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetLineQuantity(ctx context.Context, cartID, productID string, variant domain.Variant, quantity int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, total_cents = unit_price_cents * $1
WHERE cart_id = $2 AND product_id::text = $3 AND lower(size) = lower($4) AND lower(color) = lower($5)
`, quantity, cartID, productID, variant.Size, variant.Color)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) RemoveLine(ctx context.Context, cartID, productID string, variant domain.Variant) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
DELETE FROM cart_lines
WHERE cart_id = $1 AND product_id::text = $2 AND lower(size) = lower($3) AND lower(color) = lower($4)
`, cartID, productID, variant.Size, variant.Color)
	if err != nil {
		return err
	}
	r.logger.Debugf("cart repo: remove cart_id=%s product_id=%s removed=%d", cartID, productID, cmd.RowsAffected())

	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) ClearLines(ctx context.Context, cartID string) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID); err != nil {
		return err
	}
	if err := updateCartTotal(ctx, tx, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) lines(ctx context.Context, cartID string) ([]domain.CartLine, error) {
	const q = `
SELECT l.id::text, l.product_id::text, p.sku, p.name, l.size, l.color, l.quantity, l.unit_price_cents, l.created_at
FROM cart_lines l
JOIN products p ON p.id = l.product_id
WHERE l.cart_id = $1
ORDER BY l.created_at ASC, l.id ASC
`
	rows, err := r.pool.Query(ctx, q, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var line domain.CartLine
		var unitPrice int64
		if err := rows.Scan(
			&line.ID,
			&line.ProductID,
			&line.SKU,
			&line.Name,
			&line.Variant.Size,
			&line.Variant.Color,
			&line.Quantity,
			&unitPrice,
			&line.CreatedAt,
		); err != nil {
			return nil, err
		}
		line.UnitPrice = domain.FromCents(unitPrice)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func updateCartTotal(ctx context.Context, tx pgx.Tx, cartID string) error {
	_, err := tx.Exec(ctx, `
UPDATE carts
SET total_cents = COALESCE((
	SELECT SUM(total_cents)
	FROM cart_lines
	WHERE cart_id = $1
), 0),
    updated_at = now()
WHERE id = $1
`, cartID)
	return err
}
