package goathena

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ParamStyle selects how statement parameters are bound.
type ParamStyle int

const (
	// ParamStyleQmark leaves `?` placeholders in the query and passes
	// the values as positional execution parameters, substituted by the
	// service.
	ParamStyleQmark ParamStyle = iota
	// ParamStyleNamed substitutes `:name` placeholders client side with
	// rendered SQL literals before submission.
	ParamStyleNamed
)

// formatter renders a query and its parameters into the final query
// text plus the positional execution parameter literals. This is pure
// string preparation, no I/O.
type formatter struct {
	style ParamStyle
}

// prepare accepts a []any for ParamStyleQmark and a map[string]any for
// ParamStyleNamed. A nil params executes the query verbatim.
func (f *formatter) prepare(query string, params any) (string, []string, error) {
	if params == nil {
		return query, nil, nil
	}
	switch f.style {
	case ParamStyleQmark:
		positional, ok := params.([]any)
		if !ok {
			return "", nil, programmingError(
				fmt.Sprintf("expected []any parameters for qmark style, got %T", params))
		}
		rendered := make([]string, 0, len(positional))
		for _, p := range positional {
			lit, err := formatLiteral(p)
			if err != nil {
				return "", nil, err
			}
			rendered = append(rendered, lit)
		}
		return query, rendered, nil
	case ParamStyleNamed:
		named, ok := params.(map[string]any)
		if !ok {
			return "", nil, programmingError(
				fmt.Sprintf("expected map[string]any parameters for named style, got %T", params))
		}
		substituted, err := substituteNamed(query, named)
		if err != nil {
			return "", nil, err
		}
		return substituted, nil, nil
	}
	return "", nil, programmingError(fmt.Sprintf("unknown parameter style: %d", f.style))
}

func isNamedParamStart(c byte) bool {
	return c == '_' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

func isNamedParamByte(c byte) bool {
	return isNamedParamStart(c) || '0' <= c && c <= '9'
}

// substituteNamed replaces `:name` placeholders with rendered literals.
// Single-quoted string literals and `::` cast tokens are left alone.
func substituteNamed(query string, named map[string]any) (string, error) {
	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); {
		switch c := query[i]; {
		case c == '\'':
			end := i + 1
			for end < len(query) {
				if query[end] == '\'' {
					if end+1 < len(query) && query[end+1] == '\'' {
						end += 2
						continue
					}
					end++
					break
				}
				end++
			}
			b.WriteString(query[i:end])
			i = end
		case c == ':' && i+1 < len(query) && query[i+1] == ':':
			b.WriteString("::")
			i += 2
		case c == ':' && i+1 < len(query) && isNamedParamStart(query[i+1]):
			end := i + 1
			for end < len(query) && isNamedParamByte(query[end]) {
				end++
			}
			name := query[i+1 : end]
			value, ok := named[name]
			if !ok {
				return "", programmingError(fmt.Sprintf("missing parameter: %s", name))
			}
			lit, err := formatLiteral(value)
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
			i = end
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), nil
}

// formatLiteral renders one Go value as a SQL literal.
func formatLiteral(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "NULL", nil
	case bool:
		if t {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(t), nil
	case int32:
		return strconv.FormatInt(int64(t), 10), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case float32:
		return strconv.FormatFloat(float64(t), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64), nil
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'", nil
	case []byte:
		return fmt.Sprintf("X'%X'", t), nil
	case *big.Rat:
		return "DECIMAL '" + ratLiteral(t) + "'", nil
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return "DATE '" + t.Format("2006-01-02") + "'", nil
		}
		return "TIMESTAMP '" + t.Format("2006-01-02 15:04:05.000") + "'", nil
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			lit, err := formatLiteral(item)
			if err != nil {
				return "", err
			}
			parts = append(parts, lit)
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	}
	return "", programmingError(fmt.Sprintf("unsupported parameter type: %T", v))
}

// ratLiteral renders a rational as a plain decimal string without
// trailing zeros.
func ratLiteral(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	s := r.FloatString(38)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
