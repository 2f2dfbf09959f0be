package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/Fundandi1/memorybear/internal/checkout"
)

func (r *Repository) CreateOrder(ctx context.Context, order *checkout.Order) error {
	itemsJSON, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("failed to marshal order items: %w", err)
	}

	query := `INSERT INTO orders (reference, status, amount, currency, shipping_method, shipping_cost,
	            customer_first_name, customer_last_name, customer_email, customer_phone,
	            customer_address, customer_postal_code, customer_city, items, comments, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())`

	_, insertErr := r.db.ExecContext(ctx, query,
		order.Reference,
		order.Status,
		order.Amount,
		order.Currency,
		order.ShippingMethod,
		order.ShippingCost,
		order.Customer.FirstName,
		order.Customer.LastName,
		order.Customer.Email,
		order.Customer.Phone,
		order.Customer.Address,
		order.Customer.PostalCode,
		order.Customer.City,
		itemsJSON,
		order.Comments)

	if insertErr != nil {
		var pqErr *pq.Error
		if errors.As(insertErr, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateReference
		}
		return fmt.Errorf("insert order: %w", insertErr)
	}
	return nil
}

func (r *Repository) GetOrderByReference(ctx context.Context, reference string) (*checkout.Order, error) {
	query := `SELECT reference, status, amount, currency, shipping_method, shipping_cost,
	            customer_first_name, customer_last_name, customer_email, customer_phone,
	            customer_address, customer_postal_code, customer_city, items, comments,
	            created_at, completed_at
	          FROM orders WHERE reference = $1`

	var order checkout.Order
	var itemsJSON []byte
	err := r.db.QueryRowContext(ctx, query, reference).Scan(
		&order.Reference,
		&order.Status,
		&order.Amount,
		&order.Currency,
		&order.ShippingMethod,
		&order.ShippingCost,
		&order.Customer.FirstName,
		&order.Customer.LastName,
		&order.Customer.Email,
		&order.Customer.Phone,
		&order.Customer.Address,
		&order.Customer.PostalCode,
		&order.Customer.City,
		&itemsJSON,
		&order.Comments,
		&order.CreatedAt,
		&order.CompletedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, checkout.ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by reference: %w", err)
	}

	if err := json.Unmarshal(itemsJSON, &order.Items); err != nil {
		return nil, fmt.Errorf("unmarshal order items: %w", err)
	}

	return &order, nil
}

func (r *Repository) SetOrderStatus(ctx context.Context, reference string, status checkout.OrderStatus) error {
	query := `UPDATE orders SET status = $2 WHERE reference = $1`

	res, err := r.db.ExecContext(ctx, query, reference, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if rows == 0 {
		return checkout.ErrOrderNotFound
	}
	return nil
}

// CompleteOrder marks the order settled and stages its order.settled outbox
// event in the same transaction, so fulfillment can never miss a completed
// order.
func (r *Repository) CompleteOrder(ctx context.Context, reference string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	query := `UPDATE orders SET status = $2, completed_at = NOW()
	          WHERE reference = $1
	          RETURNING amount, currency`

	var amount int64
	var currency string
	err = tx.QueryRowContext(ctx, query, reference, checkout.OrderStatusCompleted).Scan(&amount, &currency)
	if errors.Is(err, sql.ErrNoRows) {
		return checkout.ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("complete order: %w", err)
	}

	payload, err := json.Marshal(map[string]interface{}{
		"reference": reference,
		"amount":    amount,
		"currency":  currency,
	})
	if err != nil {
		return fmt.Errorf("marshal settled payload: %w", err)
	}

	if err := insertOutboxEvent(ctx, tx, reference, "order.settled", payload); err != nil {
		return err
	}

	return tx.Commit()
}
