package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// Store implements the cart and checkout storage interfaces on Postgres.
// All access uses bound parameters; sanitization upstream is defense in depth.
type Store struct{ DB *pgxpool.Pool }

func NewStore(db *pgxpool.Pool) *Store { return &Store{DB: db} }

func (s *Store) GetProduct(ctx context.Context, id int64) (*shop.Product, error) {
	var p shop.Product
	err := s.DB.QueryRow(ctx, `
		SELECT id, name, description, price, stock, created_at, updated_at
		FROM products WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: product %d", shop.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]shop.Product, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, name, description, price, stock, created_at, updated_at
		FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shop.Product
	for rows.Next() {
		var p shop.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Stock, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetDiscountCode(ctx context.Context, code string) (*shop.DiscountCode, error) {
	var d shop.DiscountCode
	err := s.DB.QueryRow(ctx, `
		SELECT id, code, discount_percent, is_active, expiry_date
		FROM discount_codes WHERE code = $1`, shop.NormalizeCode(code)).
		Scan(&d.ID, &d.Code, &d.Percent, &d.Active, &d.ExpiryDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: discount code %q", shop.ErrNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *Store) GetCartItems(ctx context.Context, sessionID string) ([]shop.CartLineItem, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, session_id, product_id, quantity
		FROM cart_items WHERE session_id = $1 ORDER BY id`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]shop.CartLineItem, 0)
	for rows.Next() {
		var it shop.CartLineItem
		if err := rows.Scan(&it.ID, &it.SessionID, &it.ProductID, &it.Quantity); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (s *Store) UpsertCartItem(ctx context.Context, sessionID string, productID int64, quantity int) error {
	_, err := s.DB.Exec(ctx, `
		INSERT INTO cart_items (session_id, product_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (session_id, product_id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		sessionID, productID, quantity)
	return err
}

func (s *Store) GetCartItem(ctx context.Context, sessionID string, itemID int64) (*shop.CartLineItem, error) {
	var it shop.CartLineItem
	err := s.DB.QueryRow(ctx, `
		SELECT id, session_id, product_id, quantity
		FROM cart_items WHERE id = $1 AND session_id = $2`, itemID, sessionID).
		Scan(&it.ID, &it.SessionID, &it.ProductID, &it.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: cart item %d", shop.ErrNotFound, itemID)
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (s *Store) UpdateCartItemQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) error {
	ct, err := s.DB.Exec(ctx, `
		UPDATE cart_items SET quantity = $3 WHERE id = $1 AND session_id = $2`,
		itemID, sessionID, quantity)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: cart item %d", shop.ErrNotFound, itemID)
	}
	return nil
}

func (s *Store) RemoveCartItem(ctx context.Context, sessionID string, itemID int64) error {
	ct, err := s.DB.Exec(ctx, `
		DELETE FROM cart_items WHERE id = $1 AND session_id = $2`, itemID, sessionID)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: cart item %d", shop.ErrNotFound, itemID)
	}
	return nil
}

// CommitCheckout locks each product row (FOR UPDATE), re-checks stock,
// decrements it, inserts the order and clears the session's cart in one
// transaction. Any shortage rolls the whole thing back; two concurrent
// commits serialize on the row locks so the last unit is sold once.
func (s *Store) CommitCheckout(ctx context.Context, order *shop.Order, items []shop.CartLineItem) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range items {
		var stock int
		if err := tx.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1 FOR UPDATE`, it.ProductID).
			Scan(&stock); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("%w: product %d", shop.ErrNotFound, it.ProductID)
			}
			return err
		}
		if stock < it.Quantity {
			return fmt.Errorf("%w: product %d has %d in stock, requested %d",
				shop.ErrInsufficientStock, it.ProductID, stock, it.Quantity)
		}
	}

	for _, it := range items {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = now() WHERE id = $1`,
			it.ProductID, it.Quantity); err != nil {
			return err
		}
	}

	if err := tx.QueryRow(ctx, `
		INSERT INTO orders (order_number, session_id, subtotal, discount_amount,
		                    total_amount, status, email, payment_method, shipping_address, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		order.OrderNumber, order.SessionID, order.Subtotal, order.DiscountAmount,
		order.TotalAmount, order.Status, order.Email, order.PaymentMethod,
		order.ShippingAddress, order.CreatedAt).
		Scan(&order.ID); err != nil {
		return err
	}

	ct, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE session_id = $1`, order.SessionID)
	if err != nil {
		return err
	}
	// Zero rows deleted means a concurrent checkout already consumed this
	// session's cart; roll everything back so it cannot be sold twice.
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: cart already checked out", shop.ErrEmptyCart)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetOrderByNumber(ctx context.Context, orderNumber string) (*shop.Order, error) {
	var o shop.Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, order_number, session_id, subtotal, discount_amount, total_amount,
		       status, email, payment_method, shipping_address, created_at
		FROM orders WHERE order_number = $1`, orderNumber).
		Scan(&o.ID, &o.OrderNumber, &o.SessionID, &o.Subtotal, &o.DiscountAmount,
			&o.TotalAmount, &o.Status, &o.Email, &o.PaymentMethod, &o.ShippingAddress, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: order %q", shop.ErrNotFound, orderNumber)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}
