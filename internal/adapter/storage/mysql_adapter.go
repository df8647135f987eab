package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	mysqlmigrate "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/rl1809/pantry-tracker/internal/port"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// MigrateMySQL applies the embedded schema migrations.
func MigrateMySQL(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("open mysql: %w", err)
	}

	src, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		db.Close()
		return fmt.Errorf("load migrations: %w", err)
	}

	driver, err := mysqlmigrate.WithInstance(db, &mysqlmigrate.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "mysql", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("init migrate: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MySQLAdapter keeps every collection in one documents table; scans are
// ordered by insertion id.
type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

func (m *MySQLAdapter) GetDocument(ctx context.Context, collection, key string) (port.Document, bool, error) {
	var quantity int
	err := m.db.QueryRowContext(ctx, `
		SELECT quantity FROM documents
		WHERE collection = ? AND doc_key = ?`, collection, key,
	).Scan(&quantity)

	if errors.Is(err, sql.ErrNoRows) {
		return port.Document{}, false, nil
	}
	if err != nil {
		return port.Document{}, false, fmt.Errorf("query document: %w", err)
	}

	return port.Document{Key: key, Data: port.DocumentData{Quantity: quantity}}, true, nil
}

func (m *MySQLAdapter) SetDocument(ctx context.Context, collection, key string, data port.DocumentData) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_key, quantity)
		VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE quantity = VALUES(quantity)`,
		collection, key, data.Quantity,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) DeleteDocument(ctx context.Context, collection, key string) error {
	_, err := m.db.ExecContext(ctx, `
		DELETE FROM documents WHERE collection = ? AND doc_key = ?`, collection, key)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}

func (m *MySQLAdapter) ListDocuments(ctx context.Context, collection string) ([]port.Document, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT doc_key, quantity FROM documents
		WHERE collection = ? ORDER BY id`, collection)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	docs := []port.Document{}
	for rows.Next() {
		var doc port.Document
		if err := rows.Scan(&doc.Key, &doc.Data.Quantity); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (m *MySQLAdapter) IncrementQuantity(ctx context.Context, collection, key string) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO documents (collection, doc_key, quantity)
		VALUES (?, ?, 1)
		ON DUPLICATE KEY UPDATE quantity = quantity + 1`,
		collection, key,
	)
	if err != nil {
		return 0, fmt.Errorf("increment quantity: %w", err)
	}

	var quantity int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity FROM documents
		WHERE collection = ? AND doc_key = ?`, collection, key,
	).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("read quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return quantity, nil
}

func (m *MySQLAdapter) DecrementQuantity(ctx context.Context, collection, key string) (int, bool, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var quantity int
	err = tx.QueryRowContext(ctx, `
		SELECT quantity FROM documents
		WHERE collection = ? AND doc_key = ?
		FOR UPDATE`, collection, key,
	).Scan(&quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lock document: %w", err)
	}

	remaining := quantity - 1
	if remaining <= 0 {
		remaining = 0
		_, err = tx.ExecContext(ctx, `
			DELETE FROM documents WHERE collection = ? AND doc_key = ?`, collection, key)
	} else {
		_, err = tx.ExecContext(ctx, `
			UPDATE documents SET quantity = ?
			WHERE collection = ? AND doc_key = ?`, remaining, collection, key)
	}
	if err != nil {
		return 0, false, fmt.Errorf("decrement quantity: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, false, fmt.Errorf("commit: %w", err)
	}
	return remaining, true, nil
}

func (m *MySQLAdapter) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}
