package goathena

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Connection holds the service clients and connection-level defaults.
// Cursors created from one connection share its clients; a Connection
// is safe for concurrent use as long as each goroutine uses its own
// cursor.
type Connection struct {
	cfg       *Config
	client    athenaAPI
	storage   storageAPI
	converter *Converter

	onStartQueryExecution func(queryID string)
}

// ConnectionOption customizes connection construction.
type ConnectionOption func(*Connection)

// WithAthenaClient substitutes the service client. Used by tests and
// by callers that need custom client middleware.
func WithAthenaClient(client athenaAPI) ConnectionOption {
	return func(c *Connection) { c.client = client }
}

// WithStorageClient substitutes the object storage client.
func WithStorageClient(storage storageAPI) ConnectionOption {
	return func(c *Connection) { c.storage = storage }
}

// WithConverter substitutes the value converter for all cursors of
// this connection.
func WithConverter(converter *Converter) ConnectionOption {
	return func(c *Connection) { c.converter = converter }
}

// WithConnectionOnStartQueryExecution registers a connection-level
// callback invoked with every submitted query id.
func WithConnectionOnStartQueryExecution(fn func(queryID string)) ConnectionOption {
	return func(c *Connection) { c.onStartQueryExecution = fn }
}

// NewConnection builds a connection from a Config. Static credentials
// from the config are used when present, otherwise the clients run
// with the SDK defaults of the supplied region.
func NewConnection(ctx context.Context, cfg *Config) (*Connection, error) {
	return newConnection(ctx, cfg)
}

// Open is a convenience that parses a DSN and connects.
func Open(ctx context.Context, dsn string, opts ...ConnectionOption) (*Connection, error) {
	cfg, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	return newConnection(ctx, cfg, opts...)
}

func newConnection(ctx context.Context, cfg *Config, opts ...ConnectionOption) (*Connection, error) {
	if cfg == nil {
		return nil, programmingError("config is required")
	}
	if err := fillMissingConfigParameters(cfg); err != nil {
		return nil, err
	}
	if cfg.ClientConfigFile != "" {
		clientCfg, err := parseClientConfiguration(cfg.ClientConfigFile)
		if err != nil {
			return nil, err
		}
		if err := applyClientConfiguration(clientCfg); err != nil {
			return nil, err
		}
	}
	conn := &Connection{
		cfg:       cfg,
		converter: NewDefaultConverter(),
	}
	for _, opt := range opts {
		opt(conn)
	}
	if conn.client == nil || conn.storage == nil {
		awsCfg := aws.Config{Region: cfg.Region}
		if cfg.AccessKeyID != "" {
			awsCfg.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken)
		}
		if conn.client == nil {
			conn.client = athena.NewFromConfig(awsCfg, func(o *athena.Options) {
				if cfg.Endpoint != "" {
					o.BaseEndpoint = aws.String(cfg.Endpoint)
				}
			})
		}
		if conn.storage == nil {
			conn.storage = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
				if cfg.Endpoint != "" {
					o.BaseEndpoint = aws.String(cfg.Endpoint)
					o.UsePathStyle = true
				}
			})
		}
	}
	return conn, nil
}

// Config returns the connection configuration.
func (c *Connection) Config() *Config {
	return c.cfg
}

// Cursor returns a new cursor producing ordered rows.
func (c *Connection) Cursor() *Cursor {
	return newCursor(c)
}

// DictCursor returns a new cursor producing name-keyed rows.
func (c *Connection) DictCursor() *DictCursor {
	return newDictCursor(c)
}

// AsyncCursor returns a new cursor whose Execute does not block on
// polling.
func (c *Connection) AsyncCursor() *AsyncCursor {
	return newAsyncCursor(c)
}

// Close releases the connection. The underlying HTTP clients are
// shared and pooled by the SDK, so there is nothing to tear down.
func (c *Connection) Close() error {
	return nil
}
