// Package dbtest opens throwaway SQLite databases carrying the application
// schema so repository code can be exercised without Postgres.
package dbtest

import (
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE users (
		id text PRIMARY KEY,
		email text NOT NULL,
		password_hash text NOT NULL,
		display_name text NOT NULL,
		role text NOT NULL DEFAULT 'customer',
		last_login_at datetime,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE UNIQUE INDEX users_email_key ON users (lower(email))`,
	`CREATE TABLE sellers (
		id text PRIMARY KEY,
		user_id text NOT NULL REFERENCES users (id),
		company_name text NOT NULL,
		status text NOT NULL DEFAULT 'inactive' CHECK (status IN ('inactive', 'active')),
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE TABLE verification_requests (
		id text PRIMARY KEY,
		seller_id text NOT NULL REFERENCES sellers (id),
		submitted_at datetime NOT NULL,
		status text NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		reviewer_id text,
		reviewed_at datetime,
		notes text,
		license_number text NOT NULL,
		address_line1 text NOT NULL,
		address_line2 text,
		city text NOT NULL,
		state text NOT NULL,
		postal_code text NOT NULL,
		country text NOT NULL,
		document_ref text NOT NULL DEFAULT '',
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE TABLE products (
		id text PRIMARY KEY,
		title text NOT NULL,
		image_url text,
		base_price real NOT NULL DEFAULT 0,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE TABLE seller_products (
		id text PRIMARY KEY,
		seller_id text NOT NULL,
		product_id text NOT NULL,
		price real NOT NULL,
		stock_quantity integer NOT NULL DEFAULT 0,
		commission_rate real NOT NULL DEFAULT 0,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE TABLE orders (
		id text PRIMARY KEY,
		user_id text NOT NULL,
		status text NOT NULL DEFAULT 'pending',
		payment_method text NOT NULL,
		total_amount real NOT NULL DEFAULT 0,
		paid_amount real,
		payment_ref text,
		delivered_at datetime,
		cancelled_at datetime,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE TABLE order_items (
		id text PRIMARY KEY,
		order_id text NOT NULL,
		product_id text NOT NULL,
		seller_product_id text,
		quantity integer NOT NULL CHECK (quantity > 0),
		price real NOT NULL,
		created_at datetime NOT NULL
	)`,
	`CREATE TABLE carts (
		id text PRIMARY KEY,
		user_id text,
		anonymous_token text,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
	`CREATE UNIQUE INDEX carts_user_id_key ON carts (user_id) WHERE user_id IS NOT NULL`,
	`CREATE UNIQUE INDEX carts_anonymous_token_key ON carts (anonymous_token) WHERE anonymous_token IS NOT NULL`,
	`CREATE TABLE cart_items (
		id text PRIMARY KEY,
		cart_id text NOT NULL,
		product_id text NOT NULL,
		seller_product_id text,
		variants text NOT NULL DEFAULT '{}',
		quantity integer NOT NULL CHECK (quantity > 0),
		price real NOT NULL,
		title text NOT NULL,
		image text,
		created_at datetime NOT NULL,
		updated_at datetime NOT NULL
	)`,
}

// Open returns a private in-memory database with every table created. The
// pool is pinned to one connection so the database lives as long as the test.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared&_foreign_keys=off", name, uuid.NewString())

	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sqlite handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return conn
}
