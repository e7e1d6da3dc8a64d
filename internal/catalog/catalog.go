package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultIgnore lists helper files that live next to the definitions and are
// never treated as model files.
var DefaultIgnore = []string{"check_yaml_consistency.py", "fix_yaml_files.py"}

// Entry is one parsed definition file.
type Entry struct {
	FileName   string
	Definition *Definition
	// Unreadable lists synced field paths whose on-disk values have the
	// wrong type. Those fields are zero in Definition.
	Unreadable []string
}

// Malformed is a definition file that could not be used.
type Malformed struct {
	FileName string
	Err      error
}

// Directory is the loaded state of a catalog directory.
type Directory struct {
	Path string
	// Entries maps model id to the file that defines it.
	Entries map[string]*Entry
	// Duplicates are files whose model id was already claimed by an earlier file.
	Duplicates []*Entry
	Malformed  []Malformed
	// Files holds every definition file name seen, usable or not.
	Files map[string]bool
}

// LoadOptions controls which files are scanned.
type LoadOptions struct {
	IndexFile string
	Ignore    []string
}

// ErrNotMapping is returned for files whose top level is not a mapping.
var ErrNotMapping = errors.New("does not contain a YAML mapping")

// ErrNoModel is returned for mappings without a model field.
var ErrNoModel = errors.New("missing model field")

// LoadDir reads every definition file in dir. Unreadable directories are an
// error; individual bad files are collected in Malformed.
func LoadDir(dir string, opts LoadOptions) (*Directory, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading catalog dir: %w", err)
	}

	skip := make(map[string]bool, len(opts.Ignore)+1)
	for _, name := range opts.Ignore {
		skip[name] = true
	}
	index := opts.IndexFile
	if index == "" {
		index = DefaultIndex
	}
	skip[index] = true

	d := &Directory{
		Path:    dir,
		Entries: make(map[string]*Entry),
		Files:   make(map[string]bool),
	}

	for _, f := range entries {
		name := f.Name()
		if f.IsDir() || !strings.HasSuffix(name, definitionExt) || skip[name] {
			continue
		}
		d.Files[name] = true

		path := filepath.Join(dir, name)
		slog.Debug("loading definition", "path", path)

		def, unreadable, err := readDefinition(path)
		if err != nil {
			slog.Warn("unusable definition file", "file", name, "error", err)
			d.Malformed = append(d.Malformed, Malformed{FileName: name, Err: err})
			continue
		}
		if len(unreadable) > 0 {
			slog.Warn("definition has values of the wrong type", "file", name, "fields", unreadable)
		}

		entry := &Entry{FileName: name, Definition: def, Unreadable: unreadable}
		if prev, ok := d.Entries[def.Model]; ok {
			slog.Warn("model defined twice, keeping first file",
				"model", def.Model, "kept", prev.FileName, "ignored", name)
			d.Duplicates = append(d.Duplicates, entry)
			continue
		}
		d.Entries[def.Model] = entry
	}

	slog.Info("catalog loaded", "dir", dir, "models", len(d.Entries), "malformed", len(d.Malformed))
	return d, nil
}

// ReadDefinition parses a single definition file. Values of the wrong type
// are left at their zero value; only unparsable YAML, a non-mapping top
// level or a missing model id is an error.
func ReadDefinition(path string) (*Definition, error) {
	def, _, err := readDefinition(path)
	return def, err
}

// readDefinition also returns the synced fields whose values could not be
// decoded, so they can be rewritten.
func readDefinition(path string) (*Definition, []string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", filepath.Base(path), err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 || doc.Content[0].Kind != yaml.MappingNode {
		return nil, nil, ErrNotMapping
	}
	root := doc.Content[0]

	var def Definition
	var unreadable []string
	if err := root.Decode(&def); err != nil {
		var typeErr *yaml.TypeError
		if !errors.As(err, &typeErr) {
			return nil, nil, fmt.Errorf("decoding %s: %w", filepath.Base(path), err)
		}
		// Decoding continues past type mismatches, so def holds every
		// readable value.
		unreadable = unreadableFields(root)
	}
	if strings.TrimSpace(def.Model) == "" {
		return nil, nil, ErrNoModel
	}
	return &def, unreadable, nil
}

// Synced field paths, as reported in Entry.Unreadable.
const (
	PathLabelZh       = "label.zh_Hans"
	PathLabelEn       = "label.en_US"
	PathFeatures      = "features"
	PathContextSize   = "model_properties.context_size"
	PathPricingInput  = "pricing.input"
	PathPricingOutput = "pricing.output"
)

func unreadableFields(root *yaml.Node) []string {
	var bad []string
	check := func(path string, target any) {
		n := root
		for _, key := range strings.Split(path, ".") {
			if n.Kind != yaml.MappingNode {
				bad = append(bad, path)
				return
			}
			if n = lookup(n, key); n == nil {
				return
			}
		}
		if err := n.Decode(target); err != nil {
			bad = append(bad, path)
		}
	}

	var str string
	var list []string
	var size int64
	check(PathLabelZh, &str)
	check(PathLabelEn, &str)
	check(PathFeatures, &list)
	check(PathContextSize, &size)
	check(PathPricingInput, &str)
	check(PathPricingOutput, &str)
	return bad
}

// FileName derives a definition file name from a model id: the provider
// prefix is dropped and the remaining path segments joined with hyphens.
// Ids without a provider prefix use the whole id.
func FileName(id string) string {
	return Slug(id) + definitionExt
}

// Slug is FileName without the extension.
func Slug(id string) string {
	parts := strings.Split(id, "/")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, "-")
}
