package store

import (
	"context"
	"fmt"
)

// SeedDemoData loads a small customers/orders/products/inventory dataset
// into empty tables for local runs. No-op when customers already exist.
func (db *DB) SeedDemoData(ctx context.Context) error {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	customers := [][]string{
		{"C001", "Asha Rao", "asha@example.com", "555-0101", "Mumbai"},
		{"C002", "Daniel Okafor", "daniel@example.com", "555-0102", "Pune"},
		{"C003", "Mei Lin", "mei@example.com", "555-0103", "Delhi"},
	}
	for _, c := range customers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO customers (CUSTOMER_ID, NAME, EMAIL, PHONE, CITY) VALUES (?, ?, ?, ?, ?)`,
			c[0], c[1], c[2], c[3], c[4]); err != nil {
			return fmt.Errorf("seeding customers: %w", err)
		}
	}

	products := []struct {
		id, name, brand, category, sub, desc, specs string
		price, rating                               float64
	}{
		{"P001", "Aurora X1 Phone", "Aurora", "Electronics", "Phones", "6.1in OLED smartphone", "128GB, 8GB RAM", 34999, 4.5},
		{"P002", "Breeze Tower Fan", "Cirro", "Appliances", "Cooling", "Quiet tower fan", "3 speeds, remote", 4999, 4.1},
		{"P003", "TrailRunner Shoes", "Stride", "Apparel", "Footwear", "Trail running shoes", "Sizes 6-12", 6499, 4.3},
	}
	for _, p := range products {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO products (PRODUCT_ID, NAME, BRAND, CATEGORY, SUB_CATEGORY, DESCRIPTION, SPECIFICATIONS, PRICE, RATING) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.id, p.name, p.brand, p.category, p.sub, p.desc, p.specs, p.price, p.rating); err != nil {
			return fmt.Errorf("seeding products: %w", err)
		}
	}

	orders := [][]string{
		{"O001", "C001", "P001", "2025-01-02", "2025-01-06", "Delivered", "Credit Card", "123 Main St, Mumbai", "34999"},
		{"O002", "C001", "P003", "2025-02-10", "2025-02-14", "Delivered", "UPI", "123 Main St, Mumbai", "6499"},
		{"O003", "C002", "P002", "2025-03-01", "", "Shipped", "Credit Card", "9 Hill Rd, Pune", "4999"},
	}
	for _, o := range orders {
		var delivery interface{}
		if o[4] != "" {
			delivery = o[4]
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO orders (ORDER_ID, CUSTOMER_ID, PRODUCT_ID, ORDER_DATE, DELIVERY_DATE, STATUS, PAYMENT_METHOD, SHIPPING_ADDRESS, TOTAL_AMOUNT) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			o[0], o[1], o[2], o[3], delivery, o[5], o[6], o[7], o[8]); err != nil {
			return fmt.Errorf("seeding orders: %w", err)
		}
	}

	inventory := [][]interface{}{
		{"P001", 42, "MUM-1"},
		{"P002", 7, "PUN-2"},
		{"P003", 0, "DEL-1"},
	}
	for _, i := range inventory {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO inventory (PRODUCT_ID, STOCK_QUANTITY, WAREHOUSE) VALUES (?, ?, ?)`,
			i[0], i[1], i[2]); err != nil {
			return fmt.Errorf("seeding inventory: %w", err)
		}
	}

	return tx.Commit()
}
