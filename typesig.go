package goathena

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
)

// typeNode is one node of a parsed column type signature. Leaves carry
// an optional integer parameter list, container nodes carry child
// nodes, and row nodes additionally carry per-field names. An empty
// field name means the field is anonymous.
type typeNode struct {
	name     string
	params   []int
	children []*typeNode
	fields   []string
	index    map[string]int
}

// fieldType returns the child type for a named row field, or nil when
// the name is unknown.
func (t *typeNode) fieldType(name string) *typeNode {
	if i, ok := t.index[name]; ok {
		return t.children[i]
	}
	return nil
}

// typeAliases maps Hive dialect names onto their Trino equivalents so
// the rest of the driver only ever sees one spelling per type.
var typeAliases = map[string]string{
	"int":    "integer",
	"string": "varchar",
	"float":  "real",
	"struct": "row",
}

// multiWordTypeNames are leaf type names that contain spaces. They need
// special handling when deciding whether a row field carries a name.
var multiWordTypeNames = map[string]struct{}{
	"timestamp with time zone": {},
	"time with time zone":      {},
}

var typeSignatureCache sync.Map // signature -> *typeNode

// parseTypeSignature parses a column type signature such as
// "array(row(a integer, b varchar))" into a tree. The Hive angle
// bracket dialect ("array<struct<a:int>>") is accepted and normalized.
// Parse results are cached per signature string.
func parseTypeSignature(signature string) (*typeNode, error) {
	if cached, ok := typeSignatureCache.Load(signature); ok {
		return cached.(*typeNode), nil
	}
	node, err := parseTypeNode(normalizeTypeSignature(signature))
	if err != nil {
		return nil, err
	}
	typeSignatureCache.Store(signature, node)
	return node, nil
}

// normalizeTypeSignature rewrites the angle bracket dialect into the
// parenthesized one. Colons separate field names in that dialect only,
// so replacing them globally is safe.
func normalizeTypeSignature(signature string) string {
	s := strings.ToLower(strings.TrimSpace(signature))
	if !strings.ContainsAny(s, "<>:") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '<':
			b.WriteRune('(')
		case '>':
			b.WriteRune(')')
		case ':':
			b.WriteRune(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

func aliasTypeName(name string) string {
	if alias, ok := typeAliases[name]; ok {
		return alias
	}
	return name
}

func parseTypeNode(s string) (*typeNode, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, dataError("empty type signature")
	}
	open := strings.IndexByte(s, '(')
	if open < 0 {
		return &typeNode{name: aliasTypeName(s)}, nil
	}
	if !strings.HasSuffix(s, ")") {
		return nil, dataError(fmt.Sprintf("malformed type signature: %s", s))
	}
	name := aliasTypeName(strings.TrimSpace(s[:open]))
	inner := s[open+1 : len(s)-1]
	switch name {
	case "array":
		elem, err := parseTypeNode(inner)
		if err != nil {
			return nil, err
		}
		return &typeNode{name: name, children: []*typeNode{elem}}, nil
	case "map":
		parts := splitTopLevel(inner, ',')
		if len(parts) != 2 {
			return nil, dataError(fmt.Sprintf("malformed map signature: %s", s))
		}
		key, err := parseTypeNode(parts[0])
		if err != nil {
			return nil, err
		}
		value, err := parseTypeNode(parts[1])
		if err != nil {
			return nil, err
		}
		return &typeNode{name: name, children: []*typeNode{key, value}}, nil
	case "row":
		node := &typeNode{name: name, index: map[string]int{}}
		for _, part := range splitTopLevel(inner, ',') {
			fieldName, fieldType, err := parseRowField(part)
			if err != nil {
				return nil, err
			}
			if fieldName != "" {
				node.index[fieldName] = len(node.children)
			}
			node.fields = append(node.fields, fieldName)
			node.children = append(node.children, fieldType)
		}
		if len(node.children) == 0 {
			return nil, dataError(fmt.Sprintf("malformed row signature: %s", s))
		}
		return node, nil
	default:
		node := &typeNode{name: name}
		for _, part := range splitTopLevel(inner, ',') {
			p, err := strconv.Atoi(strings.TrimSpace(part))
			if err != nil {
				return nil, dataError(fmt.Sprintf("malformed type parameter in: %s", s))
			}
			node.params = append(node.params, p)
		}
		return node, nil
	}
}

// parseRowField parses one field of a row signature. A field is either
// "name type" or a bare type; the leading token is a name unless the
// whole field already reads as a type.
func parseRowField(field string) (string, *typeNode, error) {
	field = strings.TrimSpace(field)
	space := indexTopLevel(field, ' ')
	if space < 0 {
		node, err := parseTypeNode(field)
		return "", node, err
	}
	if _, ok := multiWordTypeNames[field]; ok {
		return "", &typeNode{name: field}, nil
	}
	name := field[:space]
	node, err := parseTypeNode(field[space+1:])
	if err != nil {
		return "", nil, err
	}
	return name, node, nil
}

// splitTopLevel splits s on sep, ignoring separators nested inside
// parentheses.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, s[start:])
}

// indexTopLevel returns the index of the first sep at parenthesis depth
// zero, or -1.
func indexTopLevel(s string, sep byte) int {
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case sep:
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// String reconstructs the canonical parenthesized signature.
func (t *typeNode) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *typeNode) write(b *strings.Builder) {
	b.WriteString(t.name)
	switch {
	case len(t.params) > 0:
		b.WriteByte('(')
		for i, p := range t.params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(strconv.Itoa(p))
		}
		b.WriteByte(')')
	case len(t.children) > 0:
		b.WriteByte('(')
		for i, c := range t.children {
			if i > 0 {
				b.WriteString(", ")
			}
			if t.name == "row" && t.fields[i] != "" {
				b.WriteString(t.fields[i])
				b.WriteByte(' ')
			}
			c.write(b)
		}
		b.WriteByte(')')
	}
}
