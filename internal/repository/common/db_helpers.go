package common

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// GetByID - универсальная функция для получения сущности по ID
func GetByID[T any](ctx context.Context, db sqlx.QueryerContext, table string, id interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1", table)

	if err := sqlx.GetContext(ctx, db, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("get by id from %s: %w", table, err)
	}

	return &entity, nil
}

// GetForUpdate читает строку и блокирует её до конца транзакции.
func GetForUpdate[T any](ctx context.Context, tx *sqlx.Tx, table string, id interface{}, notFoundErr error) (*T, error) {
	var entity T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = $1 FOR UPDATE", table)

	if err := tx.GetContext(ctx, &entity, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFoundErr
		}
		return nil, fmt.Errorf("lock %s: %w", table, err)
	}

	return &entity, nil
}

// Where собирает условия с плейсхолдерами $N в порядке добавления.
type Where struct {
	clauses []string
	args    []interface{}
}

// Add добавляет условие; в format один %d под номер плейсхолдера.
func (w *Where) Add(format string, value interface{}) {
	w.args = append(w.args, value)
	w.clauses = append(w.clauses, fmt.Sprintf(format, len(w.args)))
}

// SQL возвращает " WHERE ..." или пустую строку.
func (w *Where) SQL() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func (w *Where) Args() []interface{} {
	return w.args
}

// Page дописывает LIMIT/OFFSET и возвращает запрос с полным списком аргументов.
func (w *Where) Page(query string, limit, offset int) (string, []interface{}) {
	args := append([]interface{}{}, w.args...)
	args = append(args, limit, offset)
	return fmt.Sprintf("%s LIMIT $%d OFFSET $%d", query, len(args)-1, len(args)), args
}

// WithTransaction выполняет функцию внутри транзакции с правильной обработкой ошибок
func WithTransaction(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("tx error: %w, rollback error: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
