package goathena

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"math/big"
	"time"
)

// Driver exposes the cursor core through database/sql.
type Driver struct{}

func init() {
	sql.Register("athena", &Driver{})
}

// Open creates a connection from a DSN.
func (d *Driver) Open(dsn string) (driver.Conn, error) {
	conn, err := Open(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &sqlConn{conn: conn}, nil
}

type sqlConn struct {
	conn *Connection
}

func (c *sqlConn) Prepare(query string) (driver.Stmt, error) {
	return &sqlStmt{conn: c, query: query}, nil
}

func (c *sqlConn) Close() error {
	return c.conn.Close()
}

// Begin is required by driver.Conn. The service has no transactions.
func (c *sqlConn) Begin() (driver.Tx, error) {
	return nil, programmingError("transactions are not supported")
}

func (c *sqlConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	cursor, err := c.execute(ctx, query, args)
	if err != nil {
		return nil, err
	}
	return &sqlRows{ctx: ctx, cursor: cursor}, nil
}

func (c *sqlConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	cursor, err := c.execute(ctx, query, args)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()
	return &sqlResult{rowsAffected: cursor.Rowcount()}, nil
}

func (c *sqlConn) execute(ctx context.Context, query string, args []driver.NamedValue) (*Cursor, error) {
	cursor := c.conn.Cursor()
	params, style := namedValuesToParams(args)
	err := cursor.Execute(ctx, query, params, WithParamStyle(style))
	if err != nil {
		cursor.Close()
		return nil, err
	}
	return cursor, nil
}

// namedValuesToParams maps database/sql arguments onto the matching
// parameter style: named arguments bind client side, ordinal ones are
// passed as positional execution parameters.
func namedValuesToParams(args []driver.NamedValue) (any, ParamStyle) {
	if len(args) == 0 {
		return nil, ParamStyleQmark
	}
	named := false
	for _, arg := range args {
		if arg.Name != "" {
			named = true
			break
		}
	}
	if named {
		params := make(map[string]any, len(args))
		for _, arg := range args {
			params[arg.Name] = arg.Value
		}
		return params, ParamStyleNamed
	}
	params := make([]any, len(args))
	for i, arg := range args {
		params[i] = arg.Value
	}
	return params, ParamStyleQmark
}

type sqlStmt struct {
	conn  *sqlConn
	query string
}

func (s *sqlStmt) Close() error {
	return nil
}

func (s *sqlStmt) NumInput() int {
	return -1
}

func (s *sqlStmt) Exec(args []driver.Value) (driver.Result, error) {
	return s.conn.ExecContext(context.Background(), s.query, valuesToNamed(args))
}

func (s *sqlStmt) Query(args []driver.Value) (driver.Rows, error) {
	return s.conn.QueryContext(context.Background(), s.query, valuesToNamed(args))
}

func (s *sqlStmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

func (s *sqlStmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

func valuesToNamed(args []driver.Value) []driver.NamedValue {
	named := make([]driver.NamedValue, len(args))
	for i, v := range args {
		named[i] = driver.NamedValue{Ordinal: i + 1, Value: v}
	}
	return named
}

type sqlResult struct {
	rowsAffected int64
}

func (r *sqlResult) LastInsertId() (int64, error) {
	return 0, programmingError("LastInsertId is not supported")
}

func (r *sqlResult) RowsAffected() (int64, error) {
	return r.rowsAffected, nil
}

type sqlRows struct {
	ctx    context.Context
	cursor *Cursor
}

func (r *sqlRows) Columns() []string {
	metadata := r.cursor.Description()
	columns := make([]string, len(metadata))
	for i, m := range metadata {
		columns[i] = m.Name
	}
	return columns
}

func (r *sqlRows) ColumnTypeDatabaseTypeName(index int) string {
	metadata := r.cursor.Description()
	if index < len(metadata) {
		return metadata[index].Type
	}
	return ""
}

func (r *sqlRows) Close() error {
	return r.cursor.Close()
}

func (r *sqlRows) Next(dest []driver.Value) error {
	row, err := r.cursor.Fetchone(r.ctx)
	if err != nil {
		return err
	}
	if row == nil {
		return io.EOF
	}
	for i := range dest {
		if i < len(row) {
			dest[i] = toDriverValue(row[i])
		} else {
			dest[i] = nil
		}
	}
	return nil
}

// toDriverValue narrows converted values to the driver.Value types.
// Complex values are rendered to strings since database/sql has no
// representation for them.
func toDriverValue(v any) driver.Value {
	switch t := v.(type) {
	case nil, bool, int64, float64, string, []byte, time.Time:
		return t
	case *big.Rat:
		return ratLiteral(t)
	default:
		return fmt.Sprint(t)
	}
}
