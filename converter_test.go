package goathena

import (
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
)

func TestConvertPrimitives(t *testing.T) {
	c := NewDefaultConverter()

	v, err := c.Convert("boolean", aws.String("true"))
	assertNilF(t, err)
	assertEqualE(t, v, true)

	v, err = c.Convert("integer", aws.String("42"))
	assertNilF(t, err)
	assertEqualE(t, v, int64(42))

	v, err = c.Convert("bigint", aws.String("-9223372036854775808"))
	assertNilF(t, err)
	assertEqualE(t, v, int64(-9223372036854775808))

	v, err = c.Convert("double", aws.String("1.5"))
	assertNilF(t, err)
	assertEqualE(t, v, 1.5)

	// Numeric-looking varchar stays a string.
	v, err = c.Convert("varchar", aws.String("1234"))
	assertNilF(t, err)
	assertEqualE(t, v, "1234")

	v, err = c.Convert("varbinary", aws.String("61 62 63"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, []byte("abc"))

	v, err = c.Convert("json", aws.String(`{"a": 1}`))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[string]any{"a": json.Number("1")})
}

func TestConvertNull(t *testing.T) {
	c := NewDefaultConverter()
	v, err := c.Convert("integer", nil)
	assertNilF(t, err)
	assertNilE(t, v)
}

func TestConvertDecimal(t *testing.T) {
	c := NewDefaultConverter()
	v, err := c.Convert("decimal", aws.String("1234.56"))
	assertNilF(t, err)
	r, ok := v.(*big.Rat)
	assertTrueF(t, ok)
	assertTrueE(t, r.Cmp(big.NewRat(123456, 100)) == 0)
}

func TestConvertTemporal(t *testing.T) {
	c := NewDefaultConverter()

	v, err := c.Convert("date", aws.String("2020-01-02"))
	assertNilF(t, err)
	assertEqualE(t, v, time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC))

	v, err = c.Convert("timestamp", aws.String("2020-01-02 03:04:05.123"))
	assertNilF(t, err)
	assertEqualE(t, v, time.Date(2020, 1, 2, 3, 4, 5, 123000000, time.UTC))

	v, err = c.Convert("timestamp with time zone", aws.String("2020-01-02 03:04:05.000 +07:00"))
	assertNilF(t, err)
	ts, ok := v.(time.Time)
	assertTrueF(t, ok)
	_, offset := ts.Zone()
	assertEqualE(t, offset, 7*60*60)

	v, err = c.Convert("timestamp with time zone", aws.String("2020-01-02 03:04:05.000 UTC"))
	assertNilF(t, err)
	ts, ok = v.(time.Time)
	assertTrueF(t, ok)
	assertTrueE(t, ts.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))
}

func TestConvertInvalidPrimitive(t *testing.T) {
	c := NewDefaultConverter()
	_, err := c.Convert("integer", aws.String("abc"))
	assertNotNilE(t, err)
	_, err = c.Convert("boolean", aws.String("maybe"))
	assertNotNilE(t, err)
}

func mustParseSignature(t *testing.T, signature string) *typeNode {
	node, err := parseTypeSignature(signature)
	assertNilF(t, err)
	return node
}

func TestConvertTypedArrayPreservesVarchar(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "array(varchar)")
	v, err := c.ConvertTyped(node, aws.String("[1234, 5678]"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, []any{"1234", "5678"})
}

func TestConvertTypedArrayInteger(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "array(integer)")
	v, err := c.ConvertTyped(node, aws.String("[1, 2, 3]"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, []any{int64(1), int64(2), int64(3)})
}

func TestConvertTypedArrayWithNulls(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "array(integer)")
	v, err := c.ConvertTyped(node, aws.String("[1, null, 3]"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, []any{int64(1), nil, int64(3)})
}

func TestConvertTypedNativeStruct(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "row(name varchar, age integer)")
	v, err := c.ConvertTyped(node, aws.String("{name=Alice, age=25}"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[string]any{"name": "Alice", "age": int64(25)})
}

func TestConvertUntypedStructKeepsStrings(t *testing.T) {
	c := NewDefaultConverter()
	v, err := c.Convert("row", aws.String("{name=Alice, age=25}"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[string]any{"name": "Alice", "age": "25"})
}

func TestConvertTypedNestedArrayOfRows(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "array(row(name varchar, age integer))")
	v, err := c.ConvertTyped(node, aws.String("[{name=Alice, age=25}, {name=Bob, age=30}]"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, []any{
		map[string]any{"name": "Alice", "age": int64(25)},
		map[string]any{"name": "Bob", "age": int64(30)},
	})
}

func TestConvertTypedJSONStruct(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "row(name varchar, age integer)")
	v, err := c.ConvertTyped(node, aws.String(`{"name": "Alice", "age": 25}`))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[string]any{"name": "Alice", "age": int64(25)})
}

func TestConvertTypedMap(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "map(varchar, integer)")

	v, err := c.ConvertTyped(node, aws.String(`{"a": 1, "b": 2}`))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[any]any{"a": int64(1), "b": int64(2)})

	v, err = c.ConvertTyped(node, aws.String("{a=1, b=2}"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[any]any{"a": int64(1), "b": int64(2)})
}

func TestConvertTypedPositionalRow(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "row(integer, varchar)")
	v, err := c.ConvertTyped(node, aws.String("{42, hello}"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[string]any{"0": int64(42), "1": "hello"})
}

func TestConvertTypedNullToken(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "row(name varchar)")
	v, err := c.ConvertTyped(node, aws.String("{name=null}"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, map[string]any{"name": nil})

	v, err = c.ConvertTyped(node, aws.String("NULL"))
	assertNilF(t, err)
	assertNilE(t, v)
}

func TestConvertTypedStructuralFallback(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "array(integer)")
	v, err := c.ConvertTyped(node, aws.String("not-a-list"))
	assertNilF(t, err)
	assertEqualE(t, v, "not-a-list")
}

func TestConvertTypedNestedNativeArrayUnsupported(t *testing.T) {
	c := NewDefaultConverter()
	node := mustParseSignature(t, "array(array(varchar))")
	// Falls back to the untyped parse instead of failing the row.
	v, err := c.ConvertTyped(node, aws.String("[[a, b], [c]]"))
	assertNilF(t, err)
	assertDeepEqualE(t, v, []any{[]any{"a", "b"}, []any{"c"}})
}

func TestUntypedConvert(t *testing.T) {
	assertEqualE(t, untypedConvert("plain"), "plain")
	assertNilE(t, untypedConvert("null"))
	assertDeepEqualE(t, untypedConvert("[a, b]"), []any{"a", "b"})
	assertDeepEqualE(t, untypedConvert("{}"), map[string]any{})
	assertDeepEqualE(t, untypedConvert("{a, b}"), map[string]any{"0": "a", "1": "b"})
}
