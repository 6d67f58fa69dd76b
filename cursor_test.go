package goathena

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

func TestCursorExecuteAndFetch(t *testing.T) {
	client := &fakeAthenaClient{
		getFn: stateSequence(
			types.QueryExecutionStateQueued,
			types.QueryExecutionStateRunning,
			types.QueryExecutionStateSucceeded),
		resultsFn: func(params *athena.GetQueryResultsInput) (*athena.GetQueryResultsOutput, error) {
			return resultsPage(
				[]string{"id", "name"}, []string{"integer", "varchar"},
				[][]*string{
					{aws.String("1"), aws.String("Alice")},
					{aws.String("2"), aws.String("Bob")},
				}, true, nil), nil
		},
	}
	cursor := testConnection(client).Cursor()
	ctx := context.Background()
	assertNilF(t, cursor.Execute(ctx, "SELECT id, name FROM users", nil))
	// One status call per observed state.
	assertEqualE(t, client.getCalls, 3)
	assertEqualE(t, cursor.QueryID(), "query-id")
	assertTrueE(t, cursor.HasResultSet())

	row, err := cursor.Fetchone(ctx)
	assertNilF(t, err)
	assertDeepEqualE(t, row, Row{int64(1), "Alice"})
	assertEqualE(t, cursor.Rownumber(), int64(1))

	row, err = cursor.Fetchone(ctx)
	assertNilF(t, err)
	assertDeepEqualE(t, row, Row{int64(2), "Bob"})

	row, err = cursor.Fetchone(ctx)
	assertNilF(t, err)
	assertNilE(t, row)
	assertEqualE(t, cursor.Rownumber(), int64(2))
}

func TestCursorExecuteFailedQuery(t *testing.T) {
	client := &fakeAthenaClient{
		getFn: func(params *athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error) {
			execution := executionWithState(aws.ToString(params.QueryExecutionId), types.QueryExecutionStateFailed)
			execution.Status.StateChangeReason = aws.String("SYNTAX_ERROR: line 1:8")
			return &athena.GetQueryExecutionOutput{QueryExecution: execution}, nil
		},
	}
	cursor := testConnection(client).Cursor()
	err := cursor.Execute(context.Background(), "SELECT bogus", nil)
	assertTrueF(t, IsOperationalError(err))
	assertStringContainsE(t, err.Error(), "SYNTAX_ERROR")
	// The id of the failed execution stays accessible.
	assertEqualE(t, cursor.QueryID(), "query-id")
	assertFalseE(t, cursor.HasResultSet())
}

func TestCursorExecuteReusesCachedExecution(t *testing.T) {
	client := &fakeAthenaClient{
		listFn: func(params *athena.ListQueryExecutionsInput) (*athena.ListQueryExecutionsOutput, error) {
			return &athena.ListQueryExecutionsOutput{QueryExecutionIds: []string{"cached-id"}}, nil
		},
		batchFn: func(params *athena.BatchGetQueryExecutionInput) (*athena.BatchGetQueryExecutionOutput, error) {
			return &athena.BatchGetQueryExecutionOutput{
				QueryExecutions: []types.QueryExecution{
					cachedExecution("cached-id", "SELECT 1", types.QueryExecutionStateSucceeded,
						types.StatementTypeDml, time.Now()),
				},
			}, nil
		},
	}
	cursor := testConnection(client).Cursor()
	assertNilF(t, cursor.Execute(context.Background(), "SELECT 1", nil, WithCacheSize(10)))
	assertEqualE(t, client.startCalls, 0, "cached executions are not resubmitted")
	assertEqualE(t, cursor.QueryID(), "cached-id")
}

func TestCursorCallbacks(t *testing.T) {
	client := &fakeAthenaClient{}
	conn := testConnection(client)
	var fromConn, fromCall string
	conn.onStartQueryExecution = func(queryID string) { fromConn = queryID }
	cursor := conn.Cursor()
	err := cursor.Execute(context.Background(), "SELECT 1", nil,
		WithOnStartQueryExecution(func(queryID string) { fromCall = queryID }))
	assertNilF(t, err)
	assertEqualE(t, fromConn, "query-id")
	assertEqualE(t, fromCall, "query-id")
}

func TestCursorArraysizeBounds(t *testing.T) {
	cursor := testConnection(&fakeAthenaClient{}).Cursor()
	assertEqualE(t, cursor.Arraysize(), defaultArraysize)
	for _, invalid := range []int{0, -1, 1001} {
		err := cursor.SetArraysize(invalid)
		assertTrueE(t, IsProgrammingError(err))
		assertEqualE(t, cursor.Arraysize(), defaultArraysize, "previous value must be kept")
	}
	assertNilE(t, cursor.SetArraysize(500))
	assertEqualE(t, cursor.Arraysize(), 500)
}

func TestCursorFetchBeforeExecute(t *testing.T) {
	cursor := testConnection(&fakeAthenaClient{}).Cursor()
	_, err := cursor.Fetchone(context.Background())
	assertErrIsE(t, err, error(errNoResultSet))
	_, err = cursor.Fetchall(context.Background())
	assertErrIsE(t, err, error(errNoResultSet))
}

func TestCursorExecutemany(t *testing.T) {
	client := &fakeAthenaClient{}
	cursor := testConnection(client).Cursor()
	params := []any{
		[]any{int64(1)},
		[]any{int64(2)},
		[]any{int64(3)},
	}
	assertNilF(t, cursor.Executemany(context.Background(), "INSERT INTO t VALUES (?)", params))
	assertEqualE(t, client.startCalls, 3)
	assertFalseE(t, cursor.HasResultSet(), "executemany does not retain a result set")
}

func TestCursorCancel(t *testing.T) {
	client := &fakeAthenaClient{}
	cursor := testConnection(client).Cursor()

	err := cursor.Cancel(context.Background())
	assertErrIsE(t, err, error(errNoQueryID))

	assertNilF(t, cursor.Execute(context.Background(), "SELECT 1", nil))
	assertNilE(t, cursor.Cancel(context.Background()))
	assertEqualE(t, client.stopCalls, 1)
}

func TestCursorClosed(t *testing.T) {
	cursor := testConnection(&fakeAthenaClient{}).Cursor()
	assertNilE(t, cursor.Close())
	assertNilE(t, cursor.Close(), "close is idempotent")
	err := cursor.Execute(context.Background(), "SELECT 1", nil)
	assertTrueE(t, IsProgrammingError(err))
}

func TestCursorKillOnInterrupt(t *testing.T) {
	client := &fakeAthenaClient{}
	client.getFn = func(params *athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error) {
		state := types.QueryExecutionStateRunning
		if client.stopCalls > 0 {
			state = types.QueryExecutionStateCancelled
		}
		return &athena.GetQueryExecutionOutput{
			QueryExecution: executionWithState(aws.ToString(params.QueryExecutionId), state),
		}, nil
	}
	conn := testConnection(client)
	conn.cfg.PollInterval = time.Minute
	cursor := conn.Cursor()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := cursor.Execute(ctx, "SELECT * FROM huge_table", nil)
	assertTrueF(t, IsOperationalError(err), "cancelled execution surfaces as operational error")
	assertEqualE(t, client.stopCalls, 1, "remote execution must be stopped")
}

func TestCursorInterruptWithoutKill(t *testing.T) {
	client := &fakeAthenaClient{
		getFn: stateSequence(types.QueryExecutionStateRunning),
	}
	conn := testConnection(client)
	conn.cfg.KillOnInterrupt = false
	conn.cfg.PollInterval = time.Minute
	cursor := conn.Cursor()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := cursor.Execute(ctx, "SELECT * FROM huge_table", nil)
	assertErrIsE(t, err, context.DeadlineExceeded)
	assertEqualE(t, client.stopCalls, 0)
}

func TestDictCursor(t *testing.T) {
	client := &fakeAthenaClient{
		resultsFn: func(params *athena.GetQueryResultsInput) (*athena.GetQueryResultsOutput, error) {
			return resultsPage(
				[]string{"id", "name"}, []string{"integer", "varchar"},
				[][]*string{
					{aws.String("1"), aws.String("Alice")},
					{aws.String("2"), aws.String("Bob")},
				}, true, nil), nil
		},
	}
	cursor := testConnection(client).DictCursor()
	ctx := context.Background()
	assertNilF(t, cursor.Execute(ctx, "SELECT id, name FROM users", nil))

	row, err := cursor.Fetchone(ctx)
	assertNilF(t, err)
	assertDeepEqualE(t, row, DictRow{"id": int64(1), "name": "Alice"})

	rows, err := cursor.Fetchall(ctx)
	assertNilF(t, err)
	assertEqualF(t, len(rows), 1)
	assertDeepEqualE(t, rows[0], DictRow{"id": int64(2), "name": "Bob"})

	row, err = cursor.Fetchone(ctx)
	assertNilF(t, err)
	assertNilE(t, row)
}

func TestCursorNamedParamStyle(t *testing.T) {
	var submitted string
	client := &fakeAthenaClient{
		startFn: func(params *athena.StartQueryExecutionInput) (*athena.StartQueryExecutionOutput, error) {
			submitted = aws.ToString(params.QueryString)
			return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-id")}, nil
		},
	}
	cursor := testConnection(client).Cursor()
	err := cursor.Execute(context.Background(), "SELECT * FROM t WHERE id = :id",
		map[string]any{"id": 7}, WithParamStyle(ParamStyleNamed))
	assertNilF(t, err)
	assertEqualE(t, submitted, "SELECT * FROM t WHERE id = 7")
}

func TestCursorQmarkExecutionParameters(t *testing.T) {
	var submitted *athena.StartQueryExecutionInput
	client := &fakeAthenaClient{
		startFn: func(params *athena.StartQueryExecutionInput) (*athena.StartQueryExecutionOutput, error) {
			submitted = params
			return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-id")}, nil
		},
	}
	cursor := testConnection(client).Cursor()
	err := cursor.Execute(context.Background(), "SELECT * FROM t WHERE id = ?", []any{int64(7)})
	assertNilF(t, err)
	assertEqualE(t, aws.ToString(submitted.QueryString), "SELECT * FROM t WHERE id = ?")
	assertDeepEqualE(t, submitted.ExecutionParameters, []string{"7"})
	assertNotNilE(t, submitted.ClientRequestToken)
}
