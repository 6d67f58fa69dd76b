package goathena

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"
)

// listQueryExecutionsMaxResults is the service-side page limit of
// ListQueryExecutions.
const listQueryExecutionsMaxResults = 50

// findPreviousQueryID scans recent executions in the workgroup for a
// SUCCEEDED DML execution with identical query text and returns its id
// so the submission can be skipped entirely. cacheSize bounds how many
// executions are scanned; zero disables the scan unless expiration is
// set, in which case the scan is unbounded. Any failure during the
// scan is downgraded to a warning since the cache is an optimization.
func findPreviousQueryID(ctx context.Context, client athenaAPI, retryCfg *RetryConfig,
	query, workGroup string, cacheSize int, cacheExpiration time.Duration) string {
	if cacheSize == 0 {
		if cacheExpiration <= 0 {
			return ""
		}
		cacheSize = math.MaxInt
	}
	var expiration time.Time
	if cacheExpiration > 0 {
		expiration = time.Now().UTC().Add(-cacheExpiration)
	}
	queryID, err := scanPreviousExecutions(ctx, client, retryCfg, query, workGroup, cacheSize, expiration)
	if err != nil {
		logger.WithContext(ctx).Warnf("failed to check the cache, moving on without cache. err: %v", err)
		return ""
	}
	return queryID
}

func scanPreviousExecutions(ctx context.Context, client athenaAPI, retryCfg *RetryConfig,
	query, workGroup string, cacheSize int, expiration time.Time) (string, error) {
	var nextToken *string
	for cacheSize > 0 {
		maxResults := intMin(cacheSize, listQueryExecutionsMaxResults)
		cacheSize -= maxResults
		listed, err := retryAPICall(ctx, retryCfg, "ListQueryExecutions",
			func(ctx context.Context) (*athena.ListQueryExecutionsOutput, error) {
				input := &athena.ListQueryExecutionsInput{
					MaxResults: aws.Int32(int32(maxResults)),
					NextToken:  nextToken,
				}
				if workGroup != "" {
					input.WorkGroup = aws.String(workGroup)
				}
				return client.ListQueryExecutions(ctx, input)
			})
		if err != nil {
			return "", err
		}
		nextToken = listed.NextToken
		if len(listed.QueryExecutionIds) > 0 {
			batch, err := retryAPICall(ctx, retryCfg, "BatchGetQueryExecution",
				func(ctx context.Context) (*athena.BatchGetQueryExecutionOutput, error) {
					return client.BatchGetQueryExecution(ctx, &athena.BatchGetQueryExecutionInput{
						QueryExecutionIds: listed.QueryExecutionIds,
					})
				})
			if err != nil {
				return "", err
			}
			queryID, expired := matchCandidate(batch.QueryExecutions, query, expiration)
			if queryID != "" || expired {
				return queryID, nil
			}
		}
		if nextToken == nil {
			break
		}
	}
	return "", nil
}

// matchCandidate looks for the query text among the SUCCEEDED DML
// executions of one page, newest first. It reports expired=true when
// the page reached past the reuse window, which ends the whole scan.
func matchCandidate(executions []types.QueryExecution, query string, expiration time.Time) (string, bool) {
	candidates := make([]*QueryExecution, 0, len(executions))
	for i := range executions {
		qe := newQueryExecution(&executions[i])
		if qe.State == StateSucceeded && qe.StatementType == StatementTypeDML {
			candidates = append(candidates, qe)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CompletionDateTime.After(candidates[j].CompletionDateTime)
	})
	for _, qe := range candidates {
		if !expiration.IsZero() && !qe.CompletionDateTime.IsZero() &&
			qe.CompletionDateTime.UTC().Before(expiration) {
			return "", true
		}
		if qe.Query == query {
			return qe.QueryID, false
		}
	}
	return "", false
}
