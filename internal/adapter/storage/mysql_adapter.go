package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
)

// CartSchema creates the tables MySQLCartGateway reads and writes. products
// is owned by the shop and only read here.
var CartSchema = []string{
	`CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) NOT NULL PRIMARY KEY,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		price DECIMAL(10,2) NOT NULL,
		category VARCHAR(64) NOT NULL DEFAULT '',
		image_url VARCHAR(512) NULL
	)`,
	`CREATE TABLE IF NOT EXISTS carts (
		user_id VARCHAR(64) NOT NULL PRIMARY KEY,
		revision BIGINT NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cart_items (
		user_id VARCHAR(64) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		quantity INT NOT NULL,
		position INT NOT NULL,
		PRIMARY KEY (user_id, product_id),
		KEY idx_cart_items_position (user_id, position)
	)`,
}

// OpenMySQL connects with dsn and checks the connection.
func OpenMySQL(ctx context.Context, dsn string) (*sql.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("mysql connector: %w", err)
	}
	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}
	return db, nil
}

// MySQLCartGateway stores carts directly in the shop database.
type MySQLCartGateway struct {
	db *sql.DB
}

func NewMySQLCartGateway(db *sql.DB) *MySQLCartGateway {
	return &MySQLCartGateway{db: db}
}

func (m *MySQLCartGateway) EnsureSchema(ctx context.Context) error {
	for _, stmt := range CartSchema {
		if _, err := m.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func (m *MySQLCartGateway) FetchCart(ctx context.Context, user *domain.User) ([]domain.RemoteCartItem, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.description, p.price, p.category, p.image_url, ci.quantity
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = ?
		ORDER BY ci.position`, user.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("query cart: %w", err)
	}
	defer rows.Close()

	items := []domain.RemoteCartItem{}
	for rows.Next() {
		var (
			it          domain.RemoteCartItem
			description sql.NullString
			imageURL    sql.NullString
		)
		if err := rows.Scan(&it.Product.ID, &it.Product.Name, &description, &it.Product.Price,
			&it.Product.Category, &imageURL, &it.Quantity); err != nil {
			return nil, fmt.Errorf("scan cart item: %w", err)
		}
		it.Product.Description = description.String
		it.Product.ImageURL = imageURL.String
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cart: %w", err)
	}
	return items, nil
}

// PersistCart replaces the user's stored cart with items in one transaction.
func (m *MySQLCartGateway) PersistCart(ctx context.Context, user *domain.User, items domain.Cart) error {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO carts (user_id, revision, updated_at) VALUES (?, 1, NOW())
		ON DUPLICATE KEY UPDATE revision = revision + 1, updated_at = NOW()`,
		user.ID,
	)
	if err != nil {
		return fmt.Errorf("upsert cart: %w", err)
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = ?`, user.ID); err != nil {
		return fmt.Errorf("clear cart items: %w", err)
	}

	if len(items) > 0 {
		var sb strings.Builder
		sb.WriteString(`INSERT INTO cart_items (user_id, product_id, quantity, position) VALUES `)
		args := make([]any, 0, len(items)*4)
		for i, it := range items {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, ?, ?, ?)")
			args = append(args, user.ID, it.ProductID, it.Quantity, i)
		}
		if _, err = tx.ExecContext(ctx, sb.String(), args...); err != nil {
			return fmt.Errorf("insert cart items: %w", err)
		}
	}

	return tx.Commit()
}

// Revision is the number of writes the user's cart has seen, zero if none.
func (m *MySQLCartGateway) Revision(ctx context.Context, userID string) (int64, error) {
	var rev int64
	err := m.db.QueryRowContext(ctx, `SELECT revision FROM carts WHERE user_id = ?`, userID).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query cart revision: %w", err)
	}
	return rev, nil
}
