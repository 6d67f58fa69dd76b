package goathena

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// conversionFunc converts one raw result cell into a Go value.
type conversionFunc func(string) (any, error)

var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

var timeLayouts = []string{
	"15:04:05.999999999",
	"15:04:05",
}

func toBoolean(v string) (any, error) {
	b, err := strconv.ParseBool(strings.ToLower(v))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as boolean", v)
	}
	return b, nil
}

func toInteger(v string) (any, error) {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as integer", v)
	}
	return i, nil
}

func toFloat(v string) (any, error) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as float", v)
	}
	return f, nil
}

// toDecimal keeps full precision instead of collapsing to float64.
func toDecimal(v string) (any, error) {
	r, ok := new(big.Rat).SetString(v)
	if !ok {
		return nil, fmt.Errorf("cannot parse %q as decimal", v)
	}
	return r, nil
}

func toString(v string) (any, error) {
	return v, nil
}

func toDate(v string) (any, error) {
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as date", v)
	}
	return t, nil
}

func toTime(v string) (any, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as time", v)
}

func toTimestamp(v string) (any, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as timestamp", v)
}

// toTimestampWithTimeZone parses values such as
// "2001-08-22 03:04:05.321 America/New_York" and
// "2001-08-22 03:04:05.321 +07:00". The zone is the trailing token.
func toTimestampWithTimeZone(v string) (any, error) {
	if i := strings.LastIndexByte(v, ' '); i > 0 {
		stamp, zone := v[:i], v[i+1:]
		if loc, err := time.LoadLocation(zone); err == nil {
			for _, layout := range timestampLayouts {
				if t, err := time.ParseInLocation(layout, stamp, loc); err == nil {
					return t, nil
				}
			}
		}
	}
	for _, layout := range []string{
		"2006-01-02 15:04:05.999999999 -07:00",
		"2006-01-02 15:04:05.999999999 -0700",
	} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("cannot parse %q as timestamp with time zone", v)
}

// toBinary decodes the hex-with-spaces rendering, e.g. "61 62 63".
func toBinary(v string) (any, error) {
	b, err := hex.DecodeString(strings.ReplaceAll(v, " ", ""))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as varbinary", v)
	}
	return b, nil
}

func toJSON(v string) (any, error) {
	decoded, err := decodeJSON(v)
	if err != nil {
		return nil, fmt.Errorf("cannot parse %q as json", v)
	}
	return decoded, nil
}

func toUntyped(v string) (any, error) {
	return untypedConvert(v), nil
}

func defaultMappings() map[string]conversionFunc {
	return map[string]conversionFunc{
		"boolean":                  toBoolean,
		"tinyint":                  toInteger,
		"smallint":                 toInteger,
		"integer":                  toInteger,
		"int":                      toInteger,
		"bigint":                   toInteger,
		"float":                    toFloat,
		"real":                     toFloat,
		"double":                   toFloat,
		"decimal":                  toDecimal,
		"char":                     toString,
		"varchar":                  toString,
		"string":                   toString,
		"date":                     toDate,
		"time":                     toTime,
		"time with time zone":      toTime,
		"timestamp":                toTimestamp,
		"timestamp with time zone": toTimestampWithTimeZone,
		"varbinary":                toBinary,
		"json":                     toJSON,
		"array":                    toUntyped,
		"map":                      toUntyped,
		"row":                      toUntyped,
		"struct":                   toUntyped,
	}
}

// Converter converts raw result cell strings into Go values. The zero
// value is not usable; construct with NewDefaultConverter. Conversion
// is driven by the declared column type, optionally refined by a
// parsed type signature for complex columns.
type Converter struct {
	mappings map[string]conversionFunc
}

// NewDefaultConverter returns a Converter with the standard mapping
// table.
func NewDefaultConverter() *Converter {
	return &Converter{mappings: defaultMappings()}
}

// Register installs or replaces the conversion function for a type
// name.
func (c *Converter) Register(typeName string, fn conversionFunc) {
	c.mappings[typeName] = fn
}

// Convert converts a single cell by its declared column type. A nil
// value is SQL NULL. Types without a registered function pass through
// as the raw string.
func (c *Converter) Convert(columnType string, value *string) (any, error) {
	if value == nil {
		return nil, nil
	}
	fn, ok := c.mappings[strings.ToLower(columnType)]
	if !ok {
		return *value, nil
	}
	return fn(*value)
}

// ConvertTyped converts a cell using a parsed type signature. When the
// payload does not structurally match the signature the untyped
// heuristic result is returned instead; type hints refine conversion
// but never fail a row.
func (c *Converter) ConvertTyped(node *typeNode, value *string) (any, error) {
	if value == nil {
		return nil, nil
	}
	v, err := c.convertNode(node, *value)
	if err != nil {
		logger.Debugf("typed conversion failed, falling back to untyped. err: %v", err)
		return untypedConvert(*value), nil
	}
	return v, nil
}

func (c *Converter) convertNode(node *typeNode, raw string) (any, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, "null") {
		return nil, nil
	}
	switch node.name {
	case "array":
		return c.convertArray(node, trimmed)
	case "map":
		return c.convertMap(node, trimmed)
	case "row":
		return c.convertRow(node, trimmed)
	default:
		if fn, ok := c.mappings[node.name]; ok {
			return fn(trimmed)
		}
		return raw, nil
	}
}

func (c *Converter) convertArray(node *typeNode, s string) (any, error) {
	elem := node.children[0]
	if decoded, err := decodeJSON(s); err == nil {
		items, ok := decoded.([]any)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as array", s)
		}
		out := make([]any, 0, len(items))
		for _, item := range items {
			if item == nil {
				out = append(out, nil)
				continue
			}
			v, err := c.convertNode(elem, jsonValueString(item))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	if !strings.HasPrefix(s, "[") || !strings.HasSuffix(s, "]") {
		return nil, fmt.Errorf("cannot parse %q as array", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	if inner == "" {
		return []any{}, nil
	}
	out := []any{}
	for _, item := range splitNative(inner) {
		item = strings.TrimSpace(item)
		if strings.HasPrefix(item, "[") {
			// The native rendering of nested arrays is ambiguous.
			return nil, fmt.Errorf("cannot parse nested array in native format: %q", s)
		}
		v, err := c.convertNode(elem, item)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (c *Converter) convertMap(node *typeNode, s string) (any, error) {
	keyNode, valueNode := node.children[0], node.children[1]
	if looksLikeJSONObject(s) {
		decoded, err := decodeJSON(s)
		if err != nil {
			return nil, err
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as map", s)
		}
		out := make(map[any]any, len(obj))
		for k, v := range obj {
			kv, err := c.convertNode(keyNode, k)
			if err != nil {
				return nil, err
			}
			if v == nil {
				out[kv] = nil
				continue
			}
			vv, err := c.convertNode(valueNode, jsonValueString(v))
			if err != nil {
				return nil, err
			}
			out[kv] = vv
		}
		return out, nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("cannot parse %q as map", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	out := map[any]any{}
	if inner == "" {
		return out, nil
	}
	for _, item := range splitNative(inner) {
		item = strings.TrimSpace(item)
		eq := indexNative(item, '=')
		if eq < 0 {
			return nil, fmt.Errorf("cannot parse map entry %q", item)
		}
		kv, err := c.convertNode(keyNode, strings.TrimSpace(item[:eq]))
		if err != nil {
			return nil, err
		}
		vv, err := c.convertNode(valueNode, item[eq+1:])
		if err != nil {
			return nil, err
		}
		out[kv] = vv
	}
	return out, nil
}

func (c *Converter) convertRow(node *typeNode, s string) (any, error) {
	if looksLikeJSONObject(s) {
		decoded, err := decodeJSON(s)
		if err != nil {
			return nil, err
		}
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot parse %q as row", s)
		}
		out := make(map[string]any, len(obj))
		for k, v := range obj {
			if v == nil {
				out[k] = nil
				continue
			}
			if child := node.fieldType(k); child != nil {
				cv, err := c.convertNode(child, jsonValueString(v))
				if err != nil {
					return nil, err
				}
				out[k] = cv
			} else {
				out[k] = untypedConvert(jsonValueString(v))
			}
		}
		return out, nil
	}
	if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") {
		return nil, fmt.Errorf("cannot parse %q as row", s)
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	out := map[string]any{}
	if inner == "" {
		return out, nil
	}
	for i, item := range splitNative(inner) {
		item = strings.TrimSpace(item)
		name := ""
		value := item
		if eq := indexNative(item, '='); eq >= 0 {
			name = strings.TrimSpace(item[:eq])
			value = item[eq+1:]
		}
		child := (*typeNode)(nil)
		if name != "" {
			child = node.fieldType(name)
		}
		if child == nil && i < len(node.children) {
			// Stale or absent name hint, match by position.
			child = node.children[i]
		}
		if name == "" {
			if i < len(node.fields) && node.fields[i] != "" {
				name = node.fields[i]
			} else {
				name = strconv.Itoa(i)
			}
		}
		if child == nil {
			out[name] = untypedConvert(value)
			continue
		}
		cv, err := c.convertNode(child, value)
		if err != nil {
			return nil, err
		}
		out[name] = cv
	}
	return out, nil
}

// untypedConvert is the best-effort conversion used when no type
// signature is available. Structures are parsed, leaf values stay
// strings.
func untypedConvert(s string) any {
	t := strings.TrimSpace(s)
	if strings.EqualFold(t, "null") {
		return nil
	}
	switch {
	case strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]"):
		inner := strings.TrimSpace(t[1 : len(t)-1])
		if inner == "" {
			return []any{}
		}
		out := []any{}
		for _, item := range splitNative(inner) {
			out = append(out, untypedConvert(item))
		}
		return out
	case strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}"):
		inner := strings.TrimSpace(t[1 : len(t)-1])
		out := map[string]any{}
		if inner == "" {
			return out
		}
		for i, item := range splitNative(inner) {
			item = strings.TrimSpace(item)
			if eq := indexNative(item, '='); eq >= 0 {
				out[strings.TrimSpace(item[:eq])] = untypedConvert(item[eq+1:])
			} else {
				out[strconv.Itoa(i)] = untypedConvert(item)
			}
		}
		return out
	}
	return t
}

// decodeJSON decodes with UseNumber so integers survive the round trip
// through re-serialization without losing precision.
func decodeJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// jsonValueString renders a decoded JSON value back to the string form
// the primitive conversion functions expect.
func jsonValueString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

// looksLikeJSONObject reports whether the payload is the JSON object
// encoding rather than the native one. The JSON encoding always quotes
// its first key.
func looksLikeJSONObject(s string) bool {
	if !strings.HasPrefix(s, "{") {
		return false
	}
	rest := strings.TrimLeft(s[1:], " \t")
	return strings.HasPrefix(rest, "\"")
}

// splitNative splits a native-format payload at top-level commas,
// respecting nesting of braces, brackets and parens.
func splitNative(s string) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// indexNative returns the index of the first top-level occurrence of
// sep, or -1.
func indexNative(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[', '{', '(':
			depth++
		case ']', '}', ')':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
