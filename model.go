package goathena

import (
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// Query execution states defined at server side.
const (
	StateQueued    = "QUEUED"
	StateRunning   = "RUNNING"
	StateSucceeded = "SUCCEEDED"
	StateFailed    = "FAILED"
	StateCancelled = "CANCELLED"
)

// Statement types reported on a query execution.
const (
	StatementTypeDDL     = "DDL"
	StatementTypeDML     = "DML"
	StatementTypeUtility = "UTILITY"
)

// QueryExecution is an immutable snapshot of a remote query execution.
// It is created from a GetQueryExecution or BatchGetQueryExecution
// response and never mutated afterwards; polling replaces the whole
// snapshot rather than updating fields.
type QueryExecution struct {
	QueryID             string
	Query               string
	StatementType       string
	SubstatementType    string
	WorkGroup           string
	Catalog             string
	Database            string
	ExecutionParameters []string

	State             string
	StateChangeReason string

	SubmissionDateTime time.Time
	CompletionDateTime time.Time

	ErrorCategory *int32
	ErrorType     *int32
	Retryable     bool
	ErrorMessage  string

	OutputLocation       string
	DataManifestLocation string
	EncryptionOption     string
	KmsKey               string
	ExpectedBucketOwner  string
	S3AclOption          string

	DataScannedInBytes            int64
	EngineExecutionTimeInMillis   int64
	QueryQueueTimeInMillis        int64
	QueryPlanningTimeInMillis     int64
	ServiceProcessingTimeInMillis int64
	TotalExecutionTimeInMillis    int64

	ResultReuseEnabled   bool
	ResultReuseMinutes   int32
	ReusedPreviousResult bool

	SelectedEngineVersion  string
	EffectiveEngineVersion string
}

// IsTerminal reports whether the execution reached one of the terminal
// states. There are no transitions out of a terminal state.
func (qe *QueryExecution) IsTerminal() bool {
	switch qe.State {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// IsSucceeded reports whether the execution finished successfully.
func (qe *QueryExecution) IsSucceeded() bool {
	return qe.State == StateSucceeded
}

func newQueryExecution(src *types.QueryExecution) *QueryExecution {
	if src == nil {
		return nil
	}
	qe := &QueryExecution{
		QueryID:             aws.ToString(src.QueryExecutionId),
		Query:               aws.ToString(src.Query),
		StatementType:       string(src.StatementType),
		SubstatementType:    aws.ToString(src.SubstatementType),
		WorkGroup:           aws.ToString(src.WorkGroup),
		ExecutionParameters: src.ExecutionParameters,
	}
	if ctx := src.QueryExecutionContext; ctx != nil {
		qe.Catalog = aws.ToString(ctx.Catalog)
		qe.Database = aws.ToString(ctx.Database)
	}
	if st := src.Status; st != nil {
		qe.State = string(st.State)
		qe.StateChangeReason = aws.ToString(st.StateChangeReason)
		qe.SubmissionDateTime = aws.ToTime(st.SubmissionDateTime)
		qe.CompletionDateTime = aws.ToTime(st.CompletionDateTime)
		if ae := st.AthenaError; ae != nil {
			qe.ErrorCategory = ae.ErrorCategory
			qe.ErrorType = ae.ErrorType
			qe.Retryable = ae.Retryable
			qe.ErrorMessage = aws.ToString(ae.ErrorMessage)
		}
	}
	if rc := src.ResultConfiguration; rc != nil {
		qe.OutputLocation = aws.ToString(rc.OutputLocation)
		qe.ExpectedBucketOwner = aws.ToString(rc.ExpectedBucketOwner)
		if ec := rc.EncryptionConfiguration; ec != nil {
			qe.EncryptionOption = string(ec.EncryptionOption)
			qe.KmsKey = aws.ToString(ec.KmsKey)
		}
		if ac := rc.AclConfiguration; ac != nil {
			qe.S3AclOption = string(ac.S3AclOption)
		}
	}
	if st := src.Statistics; st != nil {
		qe.DataScannedInBytes = aws.ToInt64(st.DataScannedInBytes)
		qe.EngineExecutionTimeInMillis = aws.ToInt64(st.EngineExecutionTimeInMillis)
		qe.QueryQueueTimeInMillis = aws.ToInt64(st.QueryQueueTimeInMillis)
		qe.QueryPlanningTimeInMillis = aws.ToInt64(st.QueryPlanningTimeInMillis)
		qe.ServiceProcessingTimeInMillis = aws.ToInt64(st.ServiceProcessingTimeInMillis)
		qe.TotalExecutionTimeInMillis = aws.ToInt64(st.TotalExecutionTimeInMillis)
		qe.DataManifestLocation = aws.ToString(st.DataManifestLocation)
		if ri := st.ResultReuseInformation; ri != nil {
			qe.ReusedPreviousResult = ri.ReusedPreviousResult
		}
	}
	if rr := src.ResultReuseConfiguration; rr != nil {
		if ba := rr.ResultReuseByAgeConfiguration; ba != nil {
			qe.ResultReuseEnabled = ba.Enabled
			qe.ResultReuseMinutes = aws.ToInt32(ba.MaxAgeInMinutes)
		}
	}
	if ev := src.EngineVersion; ev != nil {
		qe.SelectedEngineVersion = aws.ToString(ev.SelectedEngineVersion)
		qe.EffectiveEngineVersion = aws.ToString(ev.EffectiveEngineVersion)
	}
	return qe
}

// dmlSubstatementTypes are the substatement types for which the service
// reports an affected-row count on the first results page.
var dmlSubstatementTypes = map[string]struct{}{
	"INSERT":                 {},
	"UPDATE":                 {},
	"DELETE":                 {},
	"MERGE":                  {},
	"CREATE_TABLE_AS_SELECT": {},
}

// ColumnMetadata describes one column of a result set, parsed from the
// first page of a GetQueryResults response.
type ColumnMetadata struct {
	Name      string
	Type      string
	Label     string
	Nullable  string
	Precision int32
	Scale     int32
}

func newColumnMetadata(src types.ColumnInfo) ColumnMetadata {
	return ColumnMetadata{
		Name:      aws.ToString(src.Name),
		Type:      aws.ToString(src.Type),
		Label:     aws.ToString(src.Label),
		Nullable:  string(src.Nullable),
		Precision: src.Precision,
		Scale:     src.Scale,
	}
}

// Database is a database entry returned by ListDatabases.
type Database struct {
	Name        string
	Description string
	Parameters  map[string]string
}

func newDatabase(src types.Database) Database {
	return Database{
		Name:        aws.ToString(src.Name),
		Description: aws.ToString(src.Description),
		Parameters:  src.Parameters,
	}
}

// TableColumn is a column entry of a table metadata response.
type TableColumn struct {
	Name    string
	Type    string
	Comment string
}

// TableMetadata describes a table returned by the metadata operations.
type TableMetadata struct {
	Name           string
	TableType      string
	CreateTime     time.Time
	LastAccessTime time.Time
	Columns        []TableColumn
	PartitionKeys  []TableColumn
	Parameters     map[string]string
}

func newTableMetadata(src types.TableMetadata) TableMetadata {
	tm := TableMetadata{
		Name:           aws.ToString(src.Name),
		TableType:      aws.ToString(src.TableType),
		CreateTime:     aws.ToTime(src.CreateTime),
		LastAccessTime: aws.ToTime(src.LastAccessTime),
		Parameters:     src.Parameters,
	}
	for _, c := range src.Columns {
		tm.Columns = append(tm.Columns, TableColumn{
			Name:    aws.ToString(c.Name),
			Type:    aws.ToString(c.Type),
			Comment: aws.ToString(c.Comment),
		})
	}
	for _, c := range src.PartitionKeys {
		tm.PartitionKeys = append(tm.PartitionKeys, TableColumn{
			Name:    aws.ToString(c.Name),
			Type:    aws.ToString(c.Type),
			Comment: aws.ToString(c.Comment),
		})
	}
	return tm
}
