package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jrazmi/growlog/core/repositories"
)

// TxOptions bound an interactive transaction.
type TxOptions struct {
	// MaxWait is how long to wait for the backend to start the transaction.
	MaxWait time.Duration
	// Timeout is how long the transaction may run once started.
	Timeout   time.Duration
	Isolation repositories.IsolationLevel
}

// TxOption overrides one of the configured transaction defaults.
type TxOption func(*TxOptions)

func WithMaxWait(d time.Duration) TxOption {
	return func(o *TxOptions) { o.MaxWait = d }
}

func WithTimeout(d time.Duration) TxOption {
	return func(o *TxOptions) { o.Timeout = d }
}

func WithIsolation(l repositories.IsolationLevel) TxOption {
	return func(o *TxOptions) { o.Isolation = l }
}

// Transaction runs fn with a client whose delegates run inside one
// transaction. The transaction commits when fn returns nil and rolls back
// otherwise. Inside a transaction, Transaction runs fn on the same one.
//
// Starting the transaction may take at most MaxWait and fn at most Timeout;
// exceeding either fails with ErrTransactionTimeout.
func (c *Client) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Client) error, opts ...TxOption) (err error) {
	if c.transaction != nil {
		return fn(ctx, c)
	}
	o := TxOptions{MaxWait: c.maxWait, Timeout: c.timeout, Isolation: c.isolation}
	for _, opt := range opts {
		opt(&o)
	}

	b, err := c.conn.get(ctx)
	if err != nil {
		return err
	}

	txCtx, cancel := context.WithTimeout(ctx, o.MaxWait+o.Timeout)
	defer cancel()
	tx, err := begin(txCtx, b.db, o)
	if err != nil {
		return err
	}

	bodyCtx, cancelBody := context.WithTimeout(txCtx, o.Timeout)
	defer cancelBody()

	view := c.withTransaction(tx)
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.WithoutCancel(ctx))
			panic(p)
		}
	}()

	err = fn(bodyCtx, view)
	expired := errors.Is(bodyCtx.Err(), context.DeadlineExceeded)
	if err != nil || expired {
		if rbErr := tx.Rollback(context.WithoutCancel(ctx)); rbErr != nil && !errors.Is(rbErr, repositories.ErrTransactionClosed) {
			c.conn.events.emit(Event{Level: LogWarn, Message: "rollback failed: " + rbErr.Error(), Target: b.name})
		}
		if expired {
			return repositories.TransactionError(repositories.ErrTransactionTimeout,
				fmt.Sprintf("transaction exceeded its timeout of %s and was rolled back", o.Timeout))
		}
		return err
	}
	return tx.Commit(txCtx)
}

// begin starts a transaction, giving up after o.MaxWait. A transaction that
// starts after the wait expired is rolled back.
func begin(ctx context.Context, db repositories.Database, o TxOptions) (repositories.Tx, error) {
	type started struct {
		tx  repositories.Tx
		err error
	}
	ch := make(chan started, 1)
	go func() {
		tx, err := db.Begin(ctx, repositories.TxOptions{Isolation: o.Isolation})
		ch <- started{tx, err}
	}()

	timer := time.NewTimer(o.MaxWait)
	defer timer.Stop()
	select {
	case s := <-ch:
		return s.tx, s.err
	case <-timer.C:
		go func() {
			if s := <-ch; s.err == nil {
				_ = s.tx.Rollback(context.Background())
			}
		}()
		return nil, repositories.TransactionError(repositories.ErrTransactionTimeout,
			fmt.Sprintf("unable to start a transaction in the given time (%s)", o.MaxWait))
	}
}

// withTransaction returns a view of c whose delegates run on tx.
func (c *Client) withTransaction(tx repositories.Tx) *Client {
	view := *c
	view.transaction = tx
	view.engine = c.engine.WithStore(tx)
	view.Delegates = newDelegates(c.log, view.engine)
	return &view
}

// Op is one operation of a batch.
type Op func(ctx context.Context, tx *Client) (any, error)

// Batch runs independent operations in one transaction, in order, and
// returns their results. The first failure rolls everything back.
func (c *Client) Batch(ctx context.Context, ops []Op, opts ...TxOption) ([]any, error) {
	results := make([]any, 0, len(ops))
	err := c.Transaction(ctx, func(ctx context.Context, tx *Client) error {
		for i, op := range ops {
			res, err := op(ctx, tx)
			if err != nil {
				return fmt.Errorf("batch operation %d: %w", i, err)
			}
			results = append(results, res)
		}
		return nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	return results, nil
}
