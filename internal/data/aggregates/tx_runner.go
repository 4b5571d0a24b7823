package aggregates

import (
	"context"

	"gorm.io/gorm"

	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
)

// TxRunner provides the transaction boundary for multi-row writes.
type TxRunner interface {
	InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error
}

type gormTxRunner struct {
	db *gorm.DB
}

// NewGormTxRunner returns a transaction runner backed by GORM transactions.
func NewGormTxRunner(db *gorm.DB) TxRunner {
	return &gormTxRunner{db: db}
}

func (r *gormTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	if fn == nil {
		return nil
	}
	if r == nil || r.db == nil {
		return domainagg.NewError(domainagg.CodeInternal, "tx", "transaction runner has nil db", nil)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: ctx, Tx: tx})
	})
}

// Within runs fn inside dbc's transaction when one is already open,
// otherwise opens a new one.
func Within(dbc dbctx.Context, runner TxRunner, fn func(dbc dbctx.Context) error) error {
	if dbc.Tx != nil {
		return fn(dbc)
	}
	return runner.InTx(dbc.Ctx, fn)
}
