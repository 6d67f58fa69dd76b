package goathena

import (
	"context"
)

// QueryFuture delivers the terminal outcome of an asynchronous
// execution. The query id is available immediately; Result blocks
// until polling finishes.
type QueryFuture struct {
	queryID   string
	done      chan struct{}
	resultSet *ResultSet
	err       error
}

// QueryID returns the submitted execution id.
func (f *QueryFuture) QueryID() string {
	return f.queryID
}

// Done returns a channel closed when the execution reached a terminal
// state and the result set is ready.
func (f *QueryFuture) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the execution completes or ctx is cancelled and
// returns the result set. A non-SUCCEEDED terminal state yields an
// OperationalError, same as the synchronous cursor.
func (f *QueryFuture) Result(ctx context.Context) (*ResultSet, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-f.done:
		return f.resultSet, f.err
	}
}

// AsyncCursor submits queries without blocking on their completion.
// Execute returns as soon as the execution id is known; polling and
// result construction happen on a background goroutine.
type AsyncCursor struct {
	inner *Cursor
}

func newAsyncCursor(conn *Connection) *AsyncCursor {
	return &AsyncCursor{inner: newCursor(conn)}
}

// Arraysize returns the page size used when building result sets.
func (c *AsyncCursor) Arraysize() int {
	return c.inner.Arraysize()
}

// SetArraysize validates and sets the page size, bounds 1..1000.
func (c *AsyncCursor) SetArraysize(value int) error {
	return c.inner.SetArraysize(value)
}

// Execute submits the query and returns a future. Submission errors
// are reported synchronously; polling errors surface on the future.
// The background poll ignores cancellation of the caller's ctx, use
// Cancel to stop the remote execution.
func (c *AsyncCursor) Execute(ctx context.Context, query string, params any, opts ...ExecuteOption) (*QueryFuture, error) {
	options := &executeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	style := c.inner.conn.cfg.ParamStyle
	if options.paramStyle != nil {
		style = *options.paramStyle
	}
	f := &formatter{style: style}
	rendered, executionParams, err := f.prepare(query, params)
	if err != nil {
		return nil, err
	}
	queryID, err := c.inner.submit(ctx, rendered, executionParams, options)
	if err != nil {
		return nil, err
	}
	if c.inner.conn.onStartQueryExecution != nil {
		c.inner.conn.onStartQueryExecution(queryID)
	}
	if options.onStart != nil {
		options.onStart(queryID)
	}
	future := &QueryFuture{
		queryID: queryID,
		done:    make(chan struct{}),
	}
	pollCtx := context.WithValue(context.Background(), QueryIDKey, queryID)
	go func() {
		defer close(future.done)
		execution, err := c.inner.pollUntilTerminal(pollCtx, queryID)
		if err != nil {
			future.err = err
			return
		}
		if !execution.IsSucceeded() {
			reason := execution.StateChangeReason
			if reason == "" {
				reason = "query did not succeed: " + execution.State
			}
			future.err = &Error{Kind: KindOperational, QueryID: queryID, Message: reason}
			return
		}
		future.resultSet, future.err = newResultSet(pollCtx, c.inner.conn.client,
			c.inner.converter, execution, c.inner.arraysize,
			c.inner.conn.cfg.RetryConfig, options.typeHints)
	}()
	return future, nil
}

// QueryExecution returns the current status snapshot of an execution
// without waiting for it to finish.
func (c *AsyncCursor) QueryExecution(ctx context.Context, queryID string) (*QueryExecution, error) {
	if queryID == "" {
		return nil, errNoQueryID
	}
	return c.inner.getQueryExecution(ctx, queryID)
}

// Cancel stops a running execution.
func (c *AsyncCursor) Cancel(ctx context.Context, queryID string) error {
	if queryID == "" {
		return errNoQueryID
	}
	return c.inner.stopQueryExecution(ctx, queryID)
}

// Close releases the cursor. In-flight futures keep polling until
// terminal.
func (c *AsyncCursor) Close() error {
	return c.inner.Close()
}
