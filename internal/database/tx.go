package database

import (
	"context"

	"github.com/uptrace/bun"
)

// SafeTx is a bun.Tx whose Rollback is a no-op once Commit has succeeded,
// so it can sit in a defer without double-finishing the transaction.
type SafeTx struct {
	bun.Tx
	committed bool
}

// BeginSafeTx opens a transaction wrapped in a SafeTx.
func BeginSafeTx(ctx context.Context, db bun.IDB) (*SafeTx, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &SafeTx{Tx: tx}, nil
}

func (tx *SafeTx) Commit() error {
	if tx.committed {
		return nil
	}
	if err := tx.Tx.Commit(); err != nil {
		return err
	}
	tx.committed = true
	return nil
}

func (tx *SafeTx) Rollback() error {
	if tx.committed {
		return nil
	}
	return tx.Tx.Rollback()
}
