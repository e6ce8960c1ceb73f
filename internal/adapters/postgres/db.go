package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kevin07696/lawdesk/internal/domain/ports"
)

// DBExecutor implements the DBPort interface for PostgreSQL
type DBExecutor struct {
	pool *pgxpool.Pool
}

// NewDBExecutor creates a new PostgreSQL database executor
func NewDBExecutor(pool *pgxpool.Pool) *DBExecutor {
	return &DBExecutor{pool: pool}
}

// GetDB returns the underlying database connection pool
func (db *DBExecutor) GetDB() *pgxpool.Pool {
	return db.pool
}

// WithTransaction executes a function within a database transaction
// Transaction is explicitly passed to the callback function
func (db *DBExecutor) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.runTx(ctx, pgx.TxOptions{}, fn)
}

// WithReadOnlyTransaction executes a function within a read-only transaction
func (db *DBExecutor) WithReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, tx pgx.Tx) error) error {
	return db.runTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (db *DBExecutor) runTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx pgx.Tx) error) error {
	tx, err := db.pool.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	// Ensure rollback on panic or error
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(ctx, tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// base is shared by every repository: a default executor, used when the
// caller passes a nil DBTX, and a per-statement timeout.
type base struct {
	pool    ports.DBTX
	timeout time.Duration
}

func newBase(db ports.DBPort, timeout time.Duration) base {
	return base{pool: db.GetDB(), timeout: timeout}
}

func (b base) conn(tx ports.DBTX) ports.DBTX {
	if tx != nil {
		return tx
	}
	return b.pool
}

func (b base) queryContext(parent context.Context) (context.Context, context.CancelFunc) {
	if b.timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, b.timeout)
}

// Repositories bundles every repository over one pool and schema
type Repositories struct {
	Companies     *CompanyRepository
	Plans         *PlanRepository
	Charges       *ChargeRepository
	Credentials   *CredentialRepository
	WebhookEvents *WebhookEventRepository
}

// NewRepositories builds all repositories. cols comes from ProbeSchema.
func NewRepositories(db ports.DBPort, cols SchemaColumns, queryTimeout time.Duration) *Repositories {
	return &Repositories{
		Companies:     NewCompanyRepository(db, cols, queryTimeout),
		Plans:         NewPlanRepository(db, queryTimeout),
		Charges:       NewChargeRepository(db, cols, queryTimeout),
		Credentials:   NewCredentialRepository(db, queryTimeout),
		WebhookEvents: NewWebhookEventRepository(db, queryTimeout),
	}
}
