package catalog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RenderIndex builds the position file: one commented group per provider
// prefix, groups and members in the order the ids are given.
//
//	# Meta-Llama Models
//	- meta-llama/llama-3.1-8b-instruct
//
//	# Qwen Models
//	- qwen/qwen-2.5-72b-instruct
func RenderIndex(ids []string) string {
	var order []string
	groups := make(map[string][]string)
	for _, id := range ids {
		provider, _, _ := strings.Cut(id, "/")
		if _, ok := groups[provider]; !ok {
			order = append(order, provider)
		}
		groups[provider] = append(groups[provider], id)
	}

	var lines []string
	for _, provider := range order {
		lines = append(lines, fmt.Sprintf("# %s Models", titleCase(provider)))
		for _, id := range groups[provider] {
			lines = append(lines, "- "+id)
		}
		lines = append(lines, "")
	}

	return strings.TrimRight(strings.Join(lines, "\n"), " \t\r\n") + "\n"
}

// titleCase capitalizes each run of letters and lowercases the rest of the
// run. Any non-letter, digits included, starts a new word, so "sao10k"
// becomes "Sao10K" and "THUDM" becomes "Thudm".
func titleCase(s string) string {
	title := cases.Title(language.English)
	var b strings.Builder
	for len(s) > 0 {
		end := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsLetter(r) })
		if end == 0 {
			end = strings.IndexFunc(s, unicode.IsLetter)
			if end < 0 {
				end = len(s)
			}
			b.WriteString(s[:end])
		} else {
			if end < 0 {
				end = len(s)
			}
			b.WriteString(title.String(s[:end]))
		}
		s = s[end:]
	}
	return b.String()
}

// WriteIndex regenerates the position file in dir. It is rewritten on every
// run regardless of whether any definition changed.
func WriteIndex(dir, name string, ids []string) error {
	if name == "" {
		name = DefaultIndex
	}
	if err := os.WriteFile(filepath.Join(dir, name), []byte(RenderIndex(ids)), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
