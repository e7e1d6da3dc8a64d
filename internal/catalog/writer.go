package catalog

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Writer creates, updates and removes definition files in one directory.
//
// Updates load the existing file as a node tree and overlay only the synced
// fields, so manually added keys, key order and comments are preserved.
type Writer struct {
	dir string
}

// NewWriter creates a Writer rooted at dir.
func NewWriter(dir string) *Writer {
	return &Writer{dir: dir}
}

// Path returns the absolute location of a definition file.
func (w *Writer) Path(fileName string) string {
	return filepath.Join(w.dir, fileName)
}

// Create writes a new definition file, replacing any file with that name.
func (w *Writer) Create(fileName string, def *Definition) error {
	data, err := encode(def)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", fileName, err)
	}
	if err := os.WriteFile(w.Path(fileName), data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	return nil
}

// Update overlays the synced fields onto an existing definition file.
func (w *Writer) Update(fileName string, s Synced) error {
	path := w.Path(fileName)
	existing, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", fileName, err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(existing, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", fileName, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return fmt.Errorf("%s: %w", fileName, ErrNotMapping)
	}
	root := doc.Content[0]

	overlay := []struct {
		path  []string
		value any
	}{
		{[]string{"label", "zh_Hans"}, s.Label},
		{[]string{"label", "en_US"}, s.Label},
		{[]string{"features"}, s.Features},
		{[]string{"model_properties", "context_size"}, s.ContextSize},
		{[]string{"pricing", "input"}, s.Input},
		{[]string{"pricing", "output"}, s.Output},
	}
	for _, o := range overlay {
		if err := setPath(root, o.path, o.value); err != nil {
			return fmt.Errorf("updating %s: %w", fileName, err)
		}
	}

	out, err := encode(&doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", fileName, err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", fileName, err)
	}
	return nil
}

// Delete removes a definition file.
func (w *Writer) Delete(fileName string) error {
	if err := os.Remove(w.Path(fileName)); err != nil {
		return fmt.Errorf("deleting %s: %w", fileName, err)
	}
	return nil
}

// encode renders v in block style with two-space indentation, sequences
// indented under their key and unicode left unescaped.
func encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// setPath assigns value at the mapping path under m, creating intermediate
// mappings and replacing non-mapping intermediates.
func setPath(m *yaml.Node, path []string, value any) error {
	for i, key := range path {
		last := i == len(path)-1
		child := lookup(m, key)

		if last {
			var n yaml.Node
			if err := n.Encode(value); err != nil {
				return fmt.Errorf("encoding %v: %w", path, err)
			}
			if child != nil {
				n.HeadComment, n.LineComment, n.FootComment = child.HeadComment, child.LineComment, child.FootComment
				*child = n
			} else {
				appendPair(m, key, &n)
			}
			return nil
		}

		if child == nil {
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			appendPair(m, key, child)
		} else if child.Kind != yaml.MappingNode {
			*child = yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		}
		m = child
	}
	return nil
}

func lookup(m *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(m.Content); i += 2 {
		if m.Content[i].Value == key {
			return m.Content[i+1]
		}
	}
	return nil
}

func appendPair(m *yaml.Node, key string, value *yaml.Node) {
	m.Content = append(m.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key},
		value)
}
