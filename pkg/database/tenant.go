package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/tyotrack/tyotrack-backend/pkg/tenant"
)

type txKey struct{}

// WithTenantSchema runs fn inside a transaction whose search_path points at
// the tenant schema. Queries issued through db with the ctx passed to fn run
// on that transaction.
//
//	err := r.db.WithTenantSchema(ctx, schema, func(ctx context.Context) error {
//	    return r.db.GetContext(ctx, &entry, "SELECT * FROM time_entries WHERE id = $1", id)
//	})
//
// SET LOCAL is scoped to the transaction, so pooled connections come back
// clean. A nested call with a transaction already on ctx reuses it.
func (db *DB) WithTenantSchema(ctx context.Context, schema string, fn func(context.Context) error) error {
	if !tenant.ValidSchema(schema) {
		return fmt.Errorf("%w: %q", tenant.ErrInvalidSchema, schema)
	}

	if tx := getTx(ctx); tx != nil {
		return fn(ctx)
	}

	return db.Transaction(ctx, func(tx *sqlx.Tx) error {
		// SET does not accept bind parameters.
		stmt := fmt.Sprintf("SET LOCAL search_path TO %s, public", pq.QuoteIdentifier(schema))
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to set search_path to %s: %w", schema, err)
		}

		return fn(context.WithValue(ctx, txKey{}, tx))
	})
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	return getTx(ctx) != nil
}

func getTx(ctx context.Context) *sqlx.Tx {
	if tx, ok := ctx.Value(txKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return nil
}
