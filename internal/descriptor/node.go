// Package descriptor parses declarative schema, tokenizer and query
// descriptors. JSON and YAML are both accepted, and key order is preserved.
package descriptor

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/pkg/num"
)

// parseRoot decodes data into a yaml node tree. The node API is used rather
// than a map so that key order survives and duplicate keys can be reported.
func parseRoot(data []byte, what string) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidArgument, err, "invalid %s descriptor", what)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, errors.InvalidArgument("empty %s descriptor", what)
	}
	return doc.Content[0], nil
}

type pair struct {
	key   string
	value *yaml.Node
}

// pairs returns the entries of a mapping node in document order.
// Duplicate keys fail with dupCode.
func pairs(n *yaml.Node, where, dupCode string) ([]pair, error) {
	n = resolve(n)
	if n.Kind != yaml.MappingNode {
		return nil, errors.InvalidArgument("%s: expected a mapping, got %s", where, kindName(n))
	}
	seen := make(map[string]int, len(n.Content)/2)
	out := make([]pair, 0, len(n.Content)/2)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k := n.Content[i]
		if prev, ok := seen[k.Value]; ok {
			return nil, errors.Newf(dupCode, "%s: duplicate key %q (lines %d and %d)",
				where, k.Value, prev, k.Line).WithDetail("name", k.Value)
		}
		seen[k.Value] = k.Line
		out = append(out, pair{key: k.Value, value: n.Content[i+1]})
	}
	return out, nil
}

func resolve(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func kindName(n *yaml.Node) string {
	switch n.Kind {
	case yaml.MappingNode:
		return "mapping"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.ScalarNode:
		if n.Tag == "!!null" {
			return "null"
		}
		return "scalar"
	default:
		return "node"
	}
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.Tag == "!!null")
}

func scalarString(n *yaml.Node, where string) (string, error) {
	n = resolve(n)
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return "", errors.InvalidArgument("%s: expected a string, got %s", where, kindName(n))
	}
	return n.Value, nil
}

func scalarBool(n *yaml.Node, where string) (bool, error) {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode {
		if b, err := strconv.ParseBool(n.Value); err == nil && n.Tag == "!!bool" {
			return b, nil
		}
	}
	return false, errors.InvalidArgument("%s: expected a boolean", where)
}

func scalarFloat(n *yaml.Node, where string) (float64, error) {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode && (n.Tag == "!!int" || n.Tag == "!!float") {
		f, err := strconv.ParseFloat(strings.ReplaceAll(n.Value, "_", ""), 64)
		if err == nil {
			return f, nil
		}
	}
	return 0, errors.InvalidArgument("%s: expected a number", where)
}

// scalarUint reads a number and projects it onto an unsigned integer of the
// given width.
func scalarUint(n *yaml.Node, bits int, where string) (uint64, error) {
	f, err := scalarFloat(n, where)
	if err != nil {
		return 0, err
	}
	v, err := num.ToUint(f, bits)
	if err != nil {
		return 0, errors.InvalidArgument("%s: %s", where, messageOf(err))
	}
	return v, nil
}

func stringList(n *yaml.Node, where string) ([]string, error) {
	n = resolve(n)
	if n.Kind == yaml.ScalarNode && n.Tag != "!!null" {
		return []string{n.Value}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, errors.InvalidArgument("%s: expected a list of strings", where)
	}
	out := make([]string, 0, len(n.Content))
	for i, c := range n.Content {
		s, err := scalarString(c, fmt.Sprintf("%s[%d]", where, i))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// scalarValue decodes a scalar into string, float64 or bool.
func scalarValue(n *yaml.Node, where string) (any, error) {
	n = resolve(n)
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return nil, errors.InvalidArgument("%s: expected a scalar value", where)
	}
	switch n.Tag {
	case "!!int", "!!float":
		return scalarFloat(n, where)
	case "!!bool":
		return scalarBool(n, where)
	default:
		return n.Value, nil
	}
}

func messageOf(err error) string {
	if be, ok := errors.As(err); ok {
		return be.Message
	}
	return err.Error()
}

// normalize folds case and treats '-' and '_' alike, so that
// "WITH_FREQS", "with-freqs" and "With_Freqs" name the same option.
func normalize(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_")
}
