package goathena

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
	"github.com/google/uuid"
)

// executeOptions are the per-call overrides of an Execute.
type executeOptions struct {
	workGroup          string
	outputLocation     string
	cacheSize          int
	cacheExpiration    time.Duration
	resultReuseEnable  *bool
	resultReuseMinutes *int32
	paramStyle         *ParamStyle
	typeHints          map[string]string
	onStart            func(queryID string)
}

// ExecuteOption customizes a single Execute call.
type ExecuteOption func(*executeOptions)

// WithWorkGroup overrides the workgroup for this execution.
func WithWorkGroup(workGroup string) ExecuteOption {
	return func(o *executeOptions) { o.workGroup = workGroup }
}

// WithOutputLocation overrides the result output location.
func WithOutputLocation(outputLocation string) ExecuteOption {
	return func(o *executeOptions) { o.outputLocation = outputLocation }
}

// WithCacheSize enables the client-side reuse scan over up to size
// recent executions.
func WithCacheSize(size int) ExecuteOption {
	return func(o *executeOptions) { o.cacheSize = size }
}

// WithCacheExpiration bounds the reuse window. With a zero cache size
// the scan becomes unbounded.
func WithCacheExpiration(d time.Duration) ExecuteOption {
	return func(o *executeOptions) { o.cacheExpiration = d }
}

// WithResultReuse overrides the service-side result reuse settings.
func WithResultReuse(enable bool, minutes int32) ExecuteOption {
	return func(o *executeOptions) {
		o.resultReuseEnable = &enable
		o.resultReuseMinutes = &minutes
	}
}

// WithParamStyle overrides the parameter style for this call.
func WithParamStyle(style ParamStyle) ExecuteOption {
	return func(o *executeOptions) { o.paramStyle = &style }
}

// WithTypeHints supplies full type signatures for complex columns,
// keyed by column name, enabling precise nested conversion.
func WithTypeHints(hints map[string]string) ExecuteOption {
	return func(o *executeOptions) { o.typeHints = hints }
}

// WithOnStartQueryExecution registers a callback invoked with the
// query id immediately after submission, before polling starts. This
// allows early access to the id for monitoring or cancellation from
// another goroutine.
func WithOnStartQueryExecution(fn func(queryID string)) ExecuteOption {
	return func(o *executeOptions) { o.onStart = fn }
}

// Cursor submits queries, polls them to completion and exposes the
// result set. A cursor tracks at most one execution at a time; Execute
// discards the previous result set. Cursor is not safe for concurrent
// use, but Cancel may be called from another goroutine while Execute
// is polling.
type Cursor struct {
	conn      *Connection
	converter *Converter
	arraysize int
	queryID   string
	resultSet *ResultSet
	closed    bool
}

func newCursor(conn *Connection) *Cursor {
	return &Cursor{
		conn:      conn,
		converter: conn.converter,
		arraysize: defaultArraysize,
	}
}

// Arraysize returns the default fetch size used by Fetchmany and the
// page size of the results API.
func (c *Cursor) Arraysize() int {
	return c.arraysize
}

// SetArraysize validates and sets the fetch size. Out-of-range values
// return a ProgrammingError and leave the previous value unchanged.
func (c *Cursor) SetArraysize(value int) error {
	if value <= 0 || value > maxArraysize {
		return programmingError("arraysize must be between 1 and 1000")
	}
	c.arraysize = value
	return nil
}

// QueryID returns the id of the current execution, empty before the
// first Execute.
func (c *Cursor) QueryID() string {
	return c.queryID
}

// Execution returns the terminal execution snapshot of the last
// Execute, nil when none completed yet.
func (c *Cursor) Execution() *QueryExecution {
	if c.resultSet == nil {
		return nil
	}
	return c.resultSet.Execution()
}

// Description returns the column metadata of the current result set.
func (c *Cursor) Description() []ColumnMetadata {
	if c.resultSet == nil {
		return nil
	}
	return c.resultSet.Description()
}

// Rowcount returns the affected-row count of the current result set,
// -1 when unknown.
func (c *Cursor) Rowcount() int64 {
	if c.resultSet == nil {
		return -1
	}
	return c.resultSet.Rowcount()
}

// Rownumber returns the number of rows delivered so far.
func (c *Cursor) Rownumber() int64 {
	if c.resultSet == nil {
		return 0
	}
	return c.resultSet.Rownumber()
}

// HasResultSet reports whether Execute produced a fetchable result.
func (c *Cursor) HasResultSet() bool {
	return c.resultSet != nil
}

func (c *Cursor) resetState() {
	if c.resultSet != nil {
		c.resultSet.Close()
		c.resultSet = nil
	}
	c.queryID = ""
}

// Execute submits a query, waits for it to reach a terminal state and
// prepares the result set. A non-SUCCEEDED terminal state yields an
// OperationalError carrying the state change reason.
func (c *Cursor) Execute(ctx context.Context, query string, params any, opts ...ExecuteOption) error {
	if c.closed {
		return programmingError("cursor is closed")
	}
	options := &executeOptions{}
	for _, opt := range opts {
		opt(options)
	}
	c.resetState()

	style := c.conn.cfg.ParamStyle
	if options.paramStyle != nil {
		style = *options.paramStyle
	}
	f := &formatter{style: style}
	rendered, executionParams, err := f.prepare(query, params)
	if err != nil {
		return err
	}

	queryID, err := c.submit(ctx, rendered, executionParams, options)
	if err != nil {
		return err
	}
	c.queryID = queryID
	ctx = context.WithValue(ctx, QueryIDKey, queryID)
	logger.WithContext(ctx).Debugf("query execution started")

	if c.conn.onStartQueryExecution != nil {
		c.conn.onStartQueryExecution(queryID)
	}
	if options.onStart != nil {
		options.onStart(queryID)
	}

	execution, err := c.poll(ctx, queryID)
	if err != nil {
		return err
	}
	if !execution.IsSucceeded() {
		reason := execution.StateChangeReason
		if reason == "" {
			reason = "query did not succeed: " + execution.State
		}
		return &Error{Kind: KindOperational, QueryID: queryID, Message: reason}
	}
	resultSet, err := newResultSet(ctx, c.conn.client, c.converter, execution,
		c.arraysize, c.conn.cfg.RetryConfig, options.typeHints)
	if err != nil {
		return err
	}
	c.resultSet = resultSet
	return nil
}

// Executemany executes the query once per parameter set. Result sets
// are discarded; use Execute for statements that return rows.
func (c *Cursor) Executemany(ctx context.Context, query string, seqOfParams []any, opts ...ExecuteOption) error {
	for _, params := range seqOfParams {
		if err := c.Execute(ctx, query, params, opts...); err != nil {
			return err
		}
	}
	c.resetState()
	return nil
}

// submit performs the cache lookup and, on a miss, starts a new
// execution.
func (c *Cursor) submit(ctx context.Context, query string, executionParams []string, options *executeOptions) (string, error) {
	workGroup := c.conn.cfg.WorkGroup
	if options.workGroup != "" {
		workGroup = options.workGroup
	}
	if queryID := findPreviousQueryID(ctx, c.conn.client, c.conn.cfg.RetryConfig,
		query, workGroup, options.cacheSize, options.cacheExpiration); queryID != "" {
		logger.WithContext(ctx).Infof("reusing previous query execution: %v", queryID)
		return queryID, nil
	}
	input := c.buildStartQueryExecutionInput(query, workGroup, executionParams, options)
	out, err := retryAPICall(ctx, c.conn.cfg.RetryConfig, "StartQueryExecution",
		func(ctx context.Context) (*athena.StartQueryExecutionOutput, error) {
			return c.conn.client.StartQueryExecution(ctx, input)
		})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to execute query. err: %v", err)
		return "", databaseError("failed to execute query", err)
	}
	queryID := aws.ToString(out.QueryExecutionId)
	if queryID == "" {
		return "", errNoQueryID
	}
	return queryID, nil
}

func (c *Cursor) buildStartQueryExecutionInput(query, workGroup string,
	executionParams []string, options *executeOptions) *athena.StartQueryExecutionInput {
	cfg := c.conn.cfg
	input := &athena.StartQueryExecutionInput{
		QueryString:        aws.String(query),
		ClientRequestToken: aws.String(uuid.NewString()),
	}
	execCtx := &types.QueryExecutionContext{}
	if cfg.Schema != "" {
		execCtx.Database = aws.String(cfg.Schema)
	}
	if cfg.Catalog != "" {
		execCtx.Catalog = aws.String(cfg.Catalog)
	}
	input.QueryExecutionContext = execCtx
	if workGroup != "" {
		input.WorkGroup = aws.String(workGroup)
	}
	resultConfig := &types.ResultConfiguration{}
	hasResultConfig := false
	outputLocation := cfg.OutputLocation
	if options.outputLocation != "" {
		outputLocation = options.outputLocation
	}
	if outputLocation != "" {
		resultConfig.OutputLocation = aws.String(outputLocation)
		hasResultConfig = true
	}
	if cfg.EncryptionOption != "" {
		enc := &types.EncryptionConfiguration{
			EncryptionOption: types.EncryptionOption(cfg.EncryptionOption),
		}
		if cfg.KmsKey != "" {
			enc.KmsKey = aws.String(cfg.KmsKey)
		}
		resultConfig.EncryptionConfiguration = enc
		hasResultConfig = true
	}
	if hasResultConfig {
		input.ResultConfiguration = resultConfig
	}
	reuseEnable := cfg.ResultReuseEnable
	if options.resultReuseEnable != nil {
		reuseEnable = *options.resultReuseEnable
	}
	if reuseEnable {
		minutes := cfg.ResultReuseMinutes
		if options.resultReuseMinutes != nil {
			minutes = *options.resultReuseMinutes
		}
		input.ResultReuseConfiguration = &types.ResultReuseConfiguration{
			ResultReuseByAgeConfiguration: &types.ResultReuseByAgeConfiguration{
				Enabled:         true,
				MaxAgeInMinutes: aws.Int32(minutes),
			},
		}
	}
	if len(executionParams) > 0 {
		input.ExecutionParameters = executionParams
	}
	return input
}

// poll waits for the execution to reach a terminal state. When the
// context is cancelled and KillOnInterrupt is set, the execution is
// stopped remotely and polling resumes detached from the caller's
// context until the cancellation is observed as terminal.
func (c *Cursor) poll(ctx context.Context, queryID string) (*QueryExecution, error) {
	execution, err := c.pollUntilTerminal(ctx, queryID)
	if err != nil {
		if ctx.Err() != nil && c.conn.cfg.KillOnInterrupt {
			logger.WithContext(ctx).Warnf("query canceled by user")
			detached := context.WithValue(context.Background(), QueryIDKey, queryID)
			if cerr := c.stopQueryExecution(detached, queryID); cerr != nil {
				return nil, cerr
			}
			return c.pollUntilTerminal(detached, queryID)
		}
		return nil, err
	}
	return execution, nil
}

func (c *Cursor) pollUntilTerminal(ctx context.Context, queryID string) (*QueryExecution, error) {
	for {
		execution, err := c.getQueryExecution(ctx, queryID)
		if err != nil {
			return nil, err
		}
		if execution.IsTerminal() {
			return execution, nil
		}
		if err := sleepContext(ctx, c.conn.cfg.PollInterval); err != nil {
			return nil, err
		}
	}
}

func (c *Cursor) getQueryExecution(ctx context.Context, queryID string) (*QueryExecution, error) {
	out, err := retryAPICall(ctx, c.conn.cfg.RetryConfig, "GetQueryExecution",
		func(ctx context.Context) (*athena.GetQueryExecutionOutput, error) {
			return c.conn.client.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
				QueryExecutionId: aws.String(queryID),
			})
		})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to get query execution. err: %v", err)
		return nil, &Error{Kind: KindOperational, QueryID: queryID,
			Message: "failed to get query execution", cause: err}
	}
	execution := newQueryExecution(out.QueryExecution)
	if execution == nil {
		return nil, dataError("missing QueryExecution in response")
	}
	return execution, nil
}

func (c *Cursor) stopQueryExecution(ctx context.Context, queryID string) error {
	_, err := retryAPICall(ctx, c.conn.cfg.RetryConfig, "StopQueryExecution",
		func(ctx context.Context) (*athena.StopQueryExecutionOutput, error) {
			return c.conn.client.StopQueryExecution(ctx, &athena.StopQueryExecutionInput{
				QueryExecutionId: aws.String(queryID),
			})
		})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to cancel query. err: %v", err)
		return &Error{Kind: KindOperational, QueryID: queryID,
			Message: "failed to cancel query", cause: err}
	}
	return nil
}

// Cancel stops the current execution. It may be called from another
// goroutine while Execute is polling.
func (c *Cursor) Cancel(ctx context.Context) error {
	if c.queryID == "" {
		return errNoQueryID
	}
	return c.stopQueryExecution(ctx, c.queryID)
}

// Fetchone returns the next row of the current result set, nil when
// exhausted.
func (c *Cursor) Fetchone(ctx context.Context) (Row, error) {
	if c.resultSet == nil {
		return nil, errNoResultSet
	}
	return c.resultSet.Fetchone(ctx)
}

// Fetchmany returns up to size rows. A size <= 0 uses the arraysize.
func (c *Cursor) Fetchmany(ctx context.Context, size int) ([]Row, error) {
	if c.resultSet == nil {
		return nil, errNoResultSet
	}
	if size <= 0 {
		size = c.arraysize
	}
	return c.resultSet.Fetchmany(ctx, size)
}

// Fetchall drains the remaining rows of the current result set.
func (c *Cursor) Fetchall(ctx context.Context) ([]Row, error) {
	if c.resultSet == nil {
		return nil, errNoResultSet
	}
	return c.resultSet.Fetchall(ctx)
}

// Close releases the cursor. It is idempotent.
func (c *Cursor) Close() error {
	c.resetState()
	c.closed = true
	return nil
}

// DictRow is one result row keyed by column name.
type DictRow map[string]any

// DictCursor is a Cursor whose fetch methods return name-keyed rows
// instead of ordered ones.
type DictCursor struct {
	Cursor
}

func newDictCursor(conn *Connection) *DictCursor {
	return &DictCursor{Cursor: *newCursor(conn)}
}

func (c *DictCursor) zip(row Row) DictRow {
	if row == nil {
		return nil
	}
	metadata := c.Description()
	out := make(DictRow, len(row))
	for i, value := range row {
		if i < len(metadata) {
			out[metadata[i].Name] = value
		}
	}
	return out
}

// Fetchone returns the next row keyed by column name, nil when
// exhausted.
func (c *DictCursor) Fetchone(ctx context.Context) (DictRow, error) {
	row, err := c.Cursor.Fetchone(ctx)
	if err != nil {
		return nil, err
	}
	return c.zip(row), nil
}

// Fetchmany returns up to size name-keyed rows.
func (c *DictCursor) Fetchmany(ctx context.Context, size int) ([]DictRow, error) {
	rows, err := c.Cursor.Fetchmany(ctx, size)
	if err != nil {
		return nil, err
	}
	out := make([]DictRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.zip(row))
	}
	return out, nil
}

// Fetchall drains the remaining rows keyed by column name.
func (c *DictCursor) Fetchall(ctx context.Context) ([]DictRow, error) {
	rows, err := c.Cursor.Fetchall(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]DictRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, c.zip(row))
	}
	return out, nil
}
