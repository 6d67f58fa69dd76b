package goathena

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
)

// defaultCatalog is the catalog used when neither the config nor the
// call specifies one.
const defaultCatalog = "awsdatacatalog"

const metadataMaxResults = 50

func (c *Connection) catalogOrDefault(catalog string) string {
	if catalog != "" {
		return catalog
	}
	if c.cfg.Catalog != "" {
		return c.cfg.Catalog
	}
	return defaultCatalog
}

// ListDatabases returns all databases of a catalog. An empty catalog
// falls back to the connection default.
func (c *Connection) ListDatabases(ctx context.Context, catalog string) ([]Database, error) {
	var databases []Database
	var nextToken *string
	for {
		out, err := retryAPICall(ctx, c.cfg.RetryConfig, "ListDatabases",
			func(ctx context.Context) (*athena.ListDatabasesOutput, error) {
				return c.client.ListDatabases(ctx, &athena.ListDatabasesInput{
					CatalogName: aws.String(c.catalogOrDefault(catalog)),
					MaxResults:  aws.Int32(metadataMaxResults),
					NextToken:   nextToken,
				})
			})
		if err != nil {
			logger.WithContext(ctx).Errorf("failed to list databases. err: %v", err)
			return nil, operationalError("failed to list databases", err)
		}
		for _, db := range out.DatabaseList {
			databases = append(databases, newDatabase(db))
		}
		nextToken = out.NextToken
		if nextToken == nil {
			return databases, nil
		}
	}
}

// GetTableMetadata returns the metadata of a single table. An empty
// schema falls back to the connection default.
func (c *Connection) GetTableMetadata(ctx context.Context, catalog, schema, table string) (*TableMetadata, error) {
	if schema == "" {
		schema = c.cfg.Schema
	}
	out, err := retryAPICall(ctx, c.cfg.RetryConfig, "GetTableMetadata",
		func(ctx context.Context) (*athena.GetTableMetadataOutput, error) {
			return c.client.GetTableMetadata(ctx, &athena.GetTableMetadataInput{
				CatalogName:  aws.String(c.catalogOrDefault(catalog)),
				DatabaseName: aws.String(schema),
				TableName:    aws.String(table),
			})
		})
	if err != nil {
		logger.WithContext(ctx).Errorf("failed to get table metadata. err: %v", err)
		return nil, operationalError("failed to get table metadata", err)
	}
	if out.TableMetadata == nil {
		return nil, dataError("missing TableMetadata in response")
	}
	tm := newTableMetadata(*out.TableMetadata)
	return &tm, nil
}

// ListTableMetadata returns the metadata of all tables of a schema,
// optionally filtered by a name expression.
func (c *Connection) ListTableMetadata(ctx context.Context, catalog, schema, expression string) ([]TableMetadata, error) {
	if schema == "" {
		schema = c.cfg.Schema
	}
	var tables []TableMetadata
	var nextToken *string
	for {
		out, err := retryAPICall(ctx, c.cfg.RetryConfig, "ListTableMetadata",
			func(ctx context.Context) (*athena.ListTableMetadataOutput, error) {
				input := &athena.ListTableMetadataInput{
					CatalogName:  aws.String(c.catalogOrDefault(catalog)),
					DatabaseName: aws.String(schema),
					MaxResults:   aws.Int32(metadataMaxResults),
					NextToken:    nextToken,
				}
				if expression != "" {
					input.Expression = aws.String(expression)
				}
				return c.client.ListTableMetadata(ctx, input)
			})
		if err != nil {
			logger.WithContext(ctx).Errorf("failed to list table metadata. err: %v", err)
			return nil, operationalError("failed to list table metadata", err)
		}
		for _, tm := range out.TableMetadataList {
			tables = append(tables, newTableMetadata(tm))
		}
		nextToken = out.NextToken
		if nextToken == nil {
			return tables, nil
		}
	}
}
