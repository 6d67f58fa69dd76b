package goathena

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// fakeAthenaClient satisfies athenaAPI with per-method function fields
// and call counters. Methods without a function return empty outputs.
type fakeAthenaClient struct {
	startFn   func(*athena.StartQueryExecutionInput) (*athena.StartQueryExecutionOutput, error)
	getFn     func(*athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error)
	stopFn    func(*athena.StopQueryExecutionInput) (*athena.StopQueryExecutionOutput, error)
	listFn    func(*athena.ListQueryExecutionsInput) (*athena.ListQueryExecutionsOutput, error)
	batchFn   func(*athena.BatchGetQueryExecutionInput) (*athena.BatchGetQueryExecutionOutput, error)
	resultsFn func(*athena.GetQueryResultsInput) (*athena.GetQueryResultsOutput, error)

	databasesFn func(*athena.ListDatabasesInput) (*athena.ListDatabasesOutput, error)
	tableFn     func(*athena.GetTableMetadataInput) (*athena.GetTableMetadataOutput, error)
	tablesFn    func(*athena.ListTableMetadataInput) (*athena.ListTableMetadataOutput, error)

	startCalls   int
	getCalls     int
	stopCalls    int
	listCalls    int
	batchCalls   int
	resultsCalls int
}

func (f *fakeAthenaClient) StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	f.startCalls++
	if f.startFn != nil {
		return f.startFn(params)
	}
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String("query-id")}, nil
}

func (f *fakeAthenaClient) GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	f.getCalls++
	if f.getFn != nil {
		return f.getFn(params)
	}
	return &athena.GetQueryExecutionOutput{
		QueryExecution: executionWithState(aws.ToString(params.QueryExecutionId), types.QueryExecutionStateSucceeded),
	}, nil
}

func (f *fakeAthenaClient) StopQueryExecution(ctx context.Context, params *athena.StopQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StopQueryExecutionOutput, error) {
	f.stopCalls++
	if f.stopFn != nil {
		return f.stopFn(params)
	}
	return &athena.StopQueryExecutionOutput{}, nil
}

func (f *fakeAthenaClient) ListQueryExecutions(ctx context.Context, params *athena.ListQueryExecutionsInput, optFns ...func(*athena.Options)) (*athena.ListQueryExecutionsOutput, error) {
	f.listCalls++
	if f.listFn != nil {
		return f.listFn(params)
	}
	return &athena.ListQueryExecutionsOutput{}, nil
}

func (f *fakeAthenaClient) BatchGetQueryExecution(ctx context.Context, params *athena.BatchGetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.BatchGetQueryExecutionOutput, error) {
	f.batchCalls++
	if f.batchFn != nil {
		return f.batchFn(params)
	}
	return &athena.BatchGetQueryExecutionOutput{}, nil
}

func (f *fakeAthenaClient) GetQueryResults(ctx context.Context, params *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error) {
	f.resultsCalls++
	if f.resultsFn != nil {
		return f.resultsFn(params)
	}
	return resultsPage([]string{"c"}, []string{"varchar"}, nil, true, nil), nil
}

func (f *fakeAthenaClient) ListDatabases(ctx context.Context, params *athena.ListDatabasesInput, optFns ...func(*athena.Options)) (*athena.ListDatabasesOutput, error) {
	if f.databasesFn != nil {
		return f.databasesFn(params)
	}
	return &athena.ListDatabasesOutput{}, nil
}

func (f *fakeAthenaClient) GetTableMetadata(ctx context.Context, params *athena.GetTableMetadataInput, optFns ...func(*athena.Options)) (*athena.GetTableMetadataOutput, error) {
	if f.tableFn != nil {
		return f.tableFn(params)
	}
	return &athena.GetTableMetadataOutput{}, nil
}

func (f *fakeAthenaClient) ListTableMetadata(ctx context.Context, params *athena.ListTableMetadataInput, optFns ...func(*athena.Options)) (*athena.ListTableMetadataOutput, error) {
	if f.tablesFn != nil {
		return f.tablesFn(params)
	}
	return &athena.ListTableMetadataOutput{}, nil
}

func testConnection(client athenaAPI) *Connection {
	return &Connection{
		cfg: &Config{
			Region:          "us-east-1",
			Schema:          "default",
			WorkGroup:       "primary",
			PollInterval:    time.Millisecond,
			KillOnInterrupt: true,
			RetryConfig: &RetryConfig{
				MaxAttempts: 1,
				BaseWait:    time.Millisecond,
				MaxWait:     time.Millisecond,
			},
		},
		client:    client,
		converter: NewDefaultConverter(),
	}
}

func executionWithState(queryID string, state types.QueryExecutionState) *types.QueryExecution {
	return &types.QueryExecution{
		QueryExecutionId: aws.String(queryID),
		StatementType:    types.StatementTypeDml,
		SubstatementType: aws.String("SELECT"),
		Status: &types.QueryExecutionStatus{
			State:              state,
			SubmissionDateTime: aws.Time(time.Now().Add(-time.Minute)),
			CompletionDateTime: aws.Time(time.Now()),
		},
	}
}

// stateSequence returns a GetQueryExecution stub that walks through
// the given states, one per call, holding the last one.
func stateSequence(states ...types.QueryExecutionState) func(*athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error) {
	i := 0
	return func(params *athena.GetQueryExecutionInput) (*athena.GetQueryExecutionOutput, error) {
		state := states[intMin(i, len(states)-1)]
		i++
		return &athena.GetQueryExecutionOutput{
			QueryExecution: executionWithState(aws.ToString(params.QueryExecutionId), state),
		}, nil
	}
}

func resultsPage(names, colTypes []string, rows [][]*string, includeHeader bool, nextToken *string) *athena.GetQueryResultsOutput {
	columnInfo := make([]types.ColumnInfo, len(names))
	for i := range names {
		columnInfo[i] = types.ColumnInfo{
			Name: aws.String(names[i]),
			Type: aws.String(colTypes[i]),
		}
	}
	// The service always decodes Rows to a non-nil slice, even when empty.
	outRows := []types.Row{}
	if includeHeader {
		header := make([]types.Datum, len(names))
		for i, name := range names {
			header[i] = types.Datum{VarCharValue: aws.String(name)}
		}
		outRows = append(outRows, types.Row{Data: header})
	}
	for _, row := range rows {
		data := make([]types.Datum, len(row))
		for i, cell := range row {
			data[i] = types.Datum{VarCharValue: cell}
		}
		outRows = append(outRows, types.Row{Data: data})
	}
	return &athena.GetQueryResultsOutput{
		ResultSet: &types.ResultSet{
			ResultSetMetadata: &types.ResultSetMetadata{ColumnInfo: columnInfo},
			Rows:              outRows,
		},
		NextToken: nextToken,
	}
}
