package goathena

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// Row is one result row in column order.
type Row []any

// complexTypes are the column types whose values benefit from a
// caller-supplied type signature hint.
var complexTypes = map[string]struct{}{
	"array":  {},
	"map":    {},
	"row":    {},
	"struct": {},
}

// ResultSet pages the rows of a succeeded query execution through the
// paginated results API, converting each cell by its column type. The
// first page is fetched eagerly so column metadata is available as
// soon as the result set is constructed. ResultSet is not safe for
// concurrent use.
type ResultSet struct {
	client    athenaAPI
	converter *Converter
	retryCfg  *RetryConfig
	execution *QueryExecution
	arraysize int

	metadata  []ColumnMetadata
	typeHints []*typeNode

	rows      []Row
	nextToken *string
	rownumber int64
	rowcount  int64
	closed    bool
}

func newResultSet(ctx context.Context, client athenaAPI, converter *Converter,
	execution *QueryExecution, arraysize int, retryCfg *RetryConfig,
	typeHints map[string]string) (*ResultSet, error) {
	if execution == nil || execution.QueryID == "" {
		return nil, errNoQueryID
	}
	if !execution.IsSucceeded() {
		return nil, errNotSucceeded
	}
	rs := &ResultSet{
		client:    client,
		converter: converter,
		retryCfg:  retryCfg,
		execution: execution,
		arraysize: arraysize,
		rowcount:  -1,
	}
	if err := rs.preFetch(ctx, typeHints); err != nil {
		return nil, err
	}
	return rs, nil
}

// Execution returns the execution snapshot backing this result set.
func (rs *ResultSet) Execution() *QueryExecution {
	return rs.execution
}

// Description returns the ordered column metadata, available after the
// first page was fetched.
func (rs *ResultSet) Description() []ColumnMetadata {
	return rs.metadata
}

// Rowcount returns the affected-row count for DML statements, -1 when
// unknown.
func (rs *ResultSet) Rowcount() int64 {
	return rs.rowcount
}

// Rownumber returns the number of rows delivered so far.
func (rs *ResultSet) Rownumber() int64 {
	return rs.rownumber
}

// HasPendingRows reports whether more rows are buffered or fetchable.
func (rs *ResultSet) HasPendingRows() bool {
	return len(rs.rows) > 0 || rs.nextToken != nil
}

// Close releases the result set. It is idempotent; fetch calls after
// Close return a ProgrammingError.
func (rs *ResultSet) Close() {
	rs.closed = true
	rs.rows = nil
	rs.nextToken = nil
}

// Fetchone returns the next row, or nil when the result is exhausted.
// Repeated calls after exhaustion keep returning nil.
func (rs *ResultSet) Fetchone(ctx context.Context) (Row, error) {
	if rs.closed {
		return nil, errClosedResultSet
	}
	if len(rs.rows) == 0 && rs.nextToken != nil {
		if err := rs.fetch(ctx); err != nil {
			return nil, err
		}
	}
	if len(rs.rows) == 0 {
		return nil, nil
	}
	row := rs.rows[0]
	rs.rows = rs.rows[1:]
	rs.rownumber++
	return row, nil
}

// Fetchmany returns up to size rows. A size <= 0 uses the arraysize.
// An exhausted result yields an empty slice, never an error.
func (rs *ResultSet) Fetchmany(ctx context.Context, size int) ([]Row, error) {
	if size <= 0 {
		size = rs.arraysize
	}
	rows := make([]Row, 0, size)
	for len(rows) < size {
		row, err := rs.Fetchone(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Fetchall drains the remaining rows.
func (rs *ResultSet) Fetchall(ctx context.Context) ([]Row, error) {
	var rows []Row
	for {
		row, err := rs.Fetchone(ctx)
		if err != nil {
			return nil, err
		}
		if row == nil {
			return rows, nil
		}
		rows = append(rows, row)
	}
}

func (rs *ResultSet) getQueryResults(ctx context.Context, maxResults int, nextToken *string) (*athena.GetQueryResultsOutput, error) {
	out, err := retryAPICall(ctx, rs.retryCfg, "GetQueryResults",
		func(ctx context.Context) (*athena.GetQueryResultsOutput, error) {
			return rs.client.GetQueryResults(ctx, &athena.GetQueryResultsInput{
				QueryExecutionId: aws.String(rs.execution.QueryID),
				MaxResults:       aws.Int32(int32(maxResults)),
				NextToken:        nextToken,
			})
		})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to retrieve query results. err: %v", err)
		return nil, &Error{Kind: KindOperational, QueryID: rs.execution.QueryID,
			Message: "failed to retrieve query results", cause: err}
	}
	return out, nil
}

func (rs *ResultSet) preFetch(ctx context.Context, typeHints map[string]string) error {
	out, err := rs.getQueryResults(ctx, rs.arraysize, nil)
	if err != nil {
		return err
	}
	if err := rs.processMetadata(out, typeHints); err != nil {
		return err
	}
	rs.processUpdateCount(out)
	rows, nextToken, err := parseResultRows(out)
	if err != nil {
		return err
	}
	rs.nextToken = nextToken
	offset := 0
	if len(rows) > 0 && rs.isFirstRowColumnLabels(rows[0]) {
		offset = 1
	}
	return rs.processRows(rows, offset)
}

func (rs *ResultSet) fetch(ctx context.Context) error {
	if rs.nextToken == nil {
		return programmingError("NextToken is none or empty")
	}
	out, err := rs.getQueryResults(ctx, rs.arraysize, rs.nextToken)
	if err != nil {
		return err
	}
	rows, nextToken, err := parseResultRows(out)
	if err != nil {
		return err
	}
	rs.nextToken = nextToken
	return rs.processRows(rows, 0)
}

func (rs *ResultSet) processMetadata(out *athena.GetQueryResultsOutput, typeHints map[string]string) error {
	if out.ResultSet == nil {
		return dataError("missing ResultSet in response")
	}
	if out.ResultSet.ResultSetMetadata == nil {
		return dataError("missing ResultSetMetadata in response")
	}
	columnInfo := out.ResultSet.ResultSetMetadata.ColumnInfo
	if columnInfo == nil {
		return dataError("missing ColumnInfo in response")
	}
	rs.metadata = make([]ColumnMetadata, 0, len(columnInfo))
	for _, ci := range columnInfo {
		rs.metadata = append(rs.metadata, newColumnMetadata(ci))
	}
	if len(typeHints) == 0 {
		return nil
	}
	lowered := make(map[string]string, len(typeHints))
	for name, signature := range typeHints {
		lowered[strings.ToLower(name)] = signature
	}
	hints := make([]*typeNode, len(rs.metadata))
	found := false
	for i, col := range rs.metadata {
		if _, isComplex := complexTypes[strings.ToLower(col.Type)]; !isComplex {
			continue
		}
		signature, ok := lowered[strings.ToLower(col.Name)]
		if !ok {
			continue
		}
		node, err := parseTypeSignature(signature)
		if err != nil {
			logger.Warnf("ignoring unparsable type hint for column %v: %v", col.Name, err)
			continue
		}
		hints[i] = node
		found = true
	}
	if found {
		rs.typeHints = hints
	}
	return nil
}

func (rs *ResultSet) processUpdateCount(out *athena.GetQueryResultsOutput) {
	if out.UpdateCount == nil {
		return
	}
	if _, ok := dmlSubstatementTypes[strings.ToUpper(rs.execution.SubstatementType)]; ok {
		rs.rowcount = *out.UpdateCount
	}
}

func parseResultRows(out *athena.GetQueryResultsOutput) ([]types.Row, *string, error) {
	if out.ResultSet == nil {
		return nil, nil, dataError("missing ResultSet in response")
	}
	if out.ResultSet.Rows == nil {
		return nil, nil, dataError("missing Rows in response")
	}
	return out.ResultSet.Rows, out.NextToken, nil
}

// isFirstRowColumnLabels reports whether the first row of the first
// page repeats the column names. The service emits such a header row
// for most SELECT results.
func (rs *ResultSet) isFirstRowColumnLabels(first types.Row) bool {
	for i := 0; i < intMin(len(rs.metadata), len(first.Data)); i++ {
		if aws.ToString(first.Data[i].VarCharValue) != rs.metadata[i].Name {
			return false
		}
	}
	return true
}

func (rs *ResultSet) processRows(rows []types.Row, offset int) error {
	for i := offset; i < len(rows); i++ {
		row, err := rs.convertRow(rows[i])
		if err != nil {
			return err
		}
		rs.rows = append(rs.rows, row)
	}
	return nil
}

func (rs *ResultSet) convertRow(raw types.Row) (Row, error) {
	n := intMin(len(rs.metadata), len(raw.Data))
	row := make(Row, 0, n)
	for i := 0; i < n; i++ {
		cell := raw.Data[i].VarCharValue
		var value any
		var err error
		if rs.typeHints != nil && rs.typeHints[i] != nil {
			value, err = rs.converter.ConvertTyped(rs.typeHints[i], cell)
		} else {
			value, err = rs.converter.Convert(rs.metadata[i].Type, cell)
		}
		if err != nil {
			return nil, &Error{Kind: KindData, QueryID: rs.execution.QueryID,
				Message: fmt.Sprintf("failed to convert column %v", rs.metadata[i].Name), cause: err}
		}
		row = append(row, value)
	}
	return row, nil
}
