/*
Copyright 2026 The Faros Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package appconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	strTag  = "!!str"
	nullTag = "!!null"
)

// yamlSource keeps the parsed node tree so comments, key order and styles
// survive a round trip. Lookups and merges act on the first document.
type yamlSource struct {
	docs   []*yaml.Node
	indent int
	// preamble holds a comment-only file, which decodes to no document.
	preamble []byte
}

func parseYAML(data []byte) (*yamlSource, error) {
	src := &yamlSource{indent: detectIndent(data)}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		src.docs = append(src.docs, &doc)
	}

	if len(src.docs) == 0 {
		if len(bytes.TrimSpace(data)) > 0 {
			src.preamble = data
		}
		return src, nil
	}
	root := src.docs[0]
	if len(root.Content) == 0 {
		root.Content = []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}
		return src, nil
	}
	switch top := root.Content[0]; {
	case top.Kind == yaml.MappingNode:
	case top.Kind == yaml.ScalarNode && top.Tag == nullTag:
		// A document holding only comments decodes as null.
		mapping := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", HeadComment: top.HeadComment, FootComment: top.FootComment}
		root.Content[0] = mapping
	default:
		return nil, fmt.Errorf("top-level YAML value must be a mapping, got %s", kindName(top.Kind))
	}
	return src, nil
}

func (s *yamlSource) Format() Format { return FormatYAML }

func (s *yamlSource) Get(key string) (string, bool) {
	root := s.root(false)
	if root == nil {
		return "", false
	}
	v := lookup(root, key)
	if v == nil || v.Kind != yaml.ScalarNode {
		return "", false
	}
	if v.Tag == nullTag {
		return "", true
	}
	return v.Value, true
}

func (s *yamlSource) Keys() []string {
	root := s.root(false)
	if root == nil {
		return nil
	}
	var keys []string
	collectKeys(root, "", &keys)
	return keys
}

func (s *yamlSource) Merge(entries map[string]string) (bool, error) {
	if err := s.CanMerge(sortedKeys(entries)); err != nil {
		return false, err
	}
	changed := false
	for _, key := range sortedKeys(entries) {
		c, err := s.set(key, entries[key])
		if err != nil {
			return changed, err
		}
		changed = changed || c
	}
	return changed, nil
}

func (s *yamlSource) CanMerge(keys []string) error {
	root := s.root(false)
	if root == nil {
		return nil
	}
	for _, key := range keys {
		if parent, i, shared := locate(root, key, false); parent != nil {
			if v := resolveAlias(parent.Content[i]); v.Kind != yaml.ScalarNode {
				return fmt.Errorf("key %q holds a %s, not a value", key, kindName(v.Kind))
			}
			if shared {
				return fmt.Errorf("key %q is inside an aliased mapping", key)
			}
			continue
		}
		if _, _, err := descend(root, key, false); err != nil {
			return fmt.Errorf("cannot set %q: %w", key, err)
		}
	}
	return nil
}

func (s *yamlSource) Encode() ([]byte, error) {
	if len(s.docs) == 0 {
		return s.preamble, nil
	}
	var buf bytes.Buffer
	if len(s.preamble) > 0 {
		buf.Write(s.preamble)
		if !bytes.HasSuffix(s.preamble, []byte("\n")) {
			buf.WriteByte('\n')
		}
	}
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(s.indent)
	for _, doc := range s.docs {
		if err := enc.Encode(doc); err != nil {
			return nil, err
		}
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// root returns the top-level mapping of the first document, creating an
// empty document when create is set.
func (s *yamlSource) root(create bool) *yaml.Node {
	if len(s.docs) == 0 {
		if !create {
			return nil
		}
		s.docs = []*yaml.Node{{
			Kind:    yaml.DocumentNode,
			Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}},
		}}
	}
	return s.docs[0].Content[0]
}

func (s *yamlSource) set(key, value string) (bool, error) {
	root := s.root(true)

	if parent, i, shared := locate(root, key, false); parent != nil {
		node := parent.Content[i]
		v := resolveAlias(node)
		if v.Kind != yaml.ScalarNode {
			return false, fmt.Errorf("key %q holds a %s, not a value", key, kindName(v.Kind))
		}
		if v.Value == value && v.Tag != nullTag {
			return false, nil
		}
		if shared {
			return false, fmt.Errorf("key %q is inside an aliased mapping", key)
		}
		if node.Kind == yaml.AliasNode {
			// The anchor is shared with other keys; only this entry changes.
			repl := scalar(value)
			repl.HeadComment, repl.LineComment, repl.FootComment = node.HeadComment, node.LineComment, node.FootComment
			parent.Content[i] = repl
			return true, nil
		}
		v.Value = value
		v.Tag = strTag
		if v.Style&(yaml.LiteralStyle|yaml.FoldedStyle) != 0 && !strings.Contains(value, "\n") {
			v.Style = 0
		}
		return true, nil
	}

	parent, rest, err := descend(root, key, true)
	if err != nil {
		return false, fmt.Errorf("cannot set %q: %w", key, err)
	}
	segments := strings.Split(rest, ".")
	for _, seg := range segments[:len(segments)-1] {
		child := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		parent.Content = append(parent.Content, scalar(seg), child)
		parent = child
	}
	parent.Content = append(parent.Content, scalar(segments[len(segments)-1]), scalar(value))
	return true, nil
}

// lookup resolves a dotted key against a mapping. Keys may themselves
// contain dots, so both "a.b: x" and nested "a: {b: x}" resolve "a.b".
func lookup(m *yaml.Node, path string) *yaml.Node {
	parent, i, _ := locate(m, path, false)
	if parent == nil {
		return nil
	}
	return resolveAlias(parent.Content[i])
}

// locate returns the mapping holding path and the index of its value node.
// shared is set when that mapping was reached through an alias.
func locate(m *yaml.Node, path string, shared bool) (*yaml.Node, int, bool) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i].Value
		if k == path {
			return m, i + 1, shared
		}
		v := resolveAlias(m.Content[i+1])
		if v.Kind == yaml.MappingNode && strings.HasPrefix(path, k+".") {
			viaAlias := shared || m.Content[i+1].Kind == yaml.AliasNode
			if parent, j, sh := locate(v, path[len(k)+1:], viaAlias); parent != nil {
				return parent, j, sh
			}
		}
	}
	return nil, -1, false
}

// descend walks the existing mappings along path and returns the innermost
// one together with the part of path below it. An intermediate key without a
// value becomes an empty mapping when create is set; with create unset the
// walk stops there and returns a nil mapping. Intermediate keys holding a
// value, a sequence or an alias cannot be extended.
func descend(m *yaml.Node, path string, create bool) (*yaml.Node, string, error) {
	best, bestLen := -1, 0
	for i := 0; i+1 < len(m.Content); i += 2 {
		k := m.Content[i].Value
		if strings.HasPrefix(path, k+".") && len(k) > bestLen {
			best, bestLen = i, len(k)
		}
	}
	if best < 0 {
		return m, path, nil
	}

	k, v := m.Content[best].Value, m.Content[best+1]
	rest := path[bestLen+1:]
	switch {
	case v.Kind == yaml.MappingNode:
	case v.Kind == yaml.ScalarNode && v.Tag == nullTag:
		if !create {
			return nil, rest, nil
		}
		mapping := &yaml.Node{
			Kind:        yaml.MappingNode,
			Tag:         "!!map",
			HeadComment: v.HeadComment,
			LineComment: v.LineComment,
			FootComment: v.FootComment,
		}
		m.Content[best+1] = mapping
		v = mapping
	case v.Kind == yaml.AliasNode:
		return nil, "", fmt.Errorf("%q is an alias, not a mapping", k)
	default:
		return nil, "", fmt.Errorf("%q holds a %s, not a mapping", k, kindName(v.Kind))
	}
	return descend(v, rest, create)
}

func collectKeys(m *yaml.Node, prefix string, keys *[]string) {
	for i := 0; i+1 < len(m.Content); i += 2 {
		k, v := m.Content[i].Value, resolveAlias(m.Content[i+1])
		if prefix != "" {
			k = prefix + "." + k
		}
		if v.Kind == yaml.MappingNode {
			collectKeys(v, k, keys)
			continue
		}
		*keys = append(*keys, k)
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}

func scalar(v string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: strTag, Value: v}
}

// detectIndent returns the smallest indentation used by the document, so
// re-encoding keeps the author's nesting width.
func detectIndent(data []byte) int {
	indent := 0
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimLeft(line, " ")
		n := len(line) - len(trimmed)
		if n == 0 || trimmed == "" || strings.HasPrefix(trimmed, "#") || strings.HasPrefix(trimmed, "\t") {
			continue
		}
		if indent == 0 || n < indent {
			indent = n
		}
	}
	if indent < 2 {
		return 2
	}
	return indent
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.DocumentNode:
		return "document"
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.ScalarNode:
		return "scalar"
	case yaml.AliasNode:
		return "alias"
	}
	return "unknown node"
}
