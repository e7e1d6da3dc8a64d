package validate

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/everstacklabs/modelsync/internal/catalog"
	"github.com/everstacklabs/modelsync/internal/feature"
)

// Severity classifies validation issues.
type Severity int

const (
	SeverityError   Severity = iota // Definition must not be written
	SeverityWarning                 // Reported, does not block
)

// Issue represents a single validation problem.
type Issue struct {
	Severity Severity
	File     string
	Field    string
	Message  string
}

func (i Issue) String() string {
	sev := "ERROR"
	if i.Severity == SeverityWarning {
		sev = "WARN"
	}
	return fmt.Sprintf("[%s] %s: %s: %s", sev, i.File, i.Field, i.Message)
}

// Result holds all validation issues.
type Result struct {
	Issues []Issue
}

// HasErrors returns true if there are any blocking errors.
func (r *Result) HasErrors() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Errors returns only error-severity issues.
func (r *Result) Errors() []Issue {
	return r.filter(SeverityError)
}

// Warnings returns only warning-severity issues.
func (r *Result) Warnings() []Issue {
	return r.filter(SeverityWarning)
}

func (r *Result) filter(sev Severity) []Issue {
	var out []Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

func (r *Result) add(sev Severity, file, field, msg string) {
	r.Issues = append(r.Issues, Issue{Severity: sev, File: file, Field: field, Message: msg})
}

// ValidateDefinition checks a single definition against the file schema.
func ValidateDefinition(d *catalog.Definition, filename string) *Result {
	r := &Result{}

	if strings.TrimSpace(d.Model) == "" {
		r.add(SeverityError, filename, "model", "required field is empty")
	}
	if d.ModelType != catalog.ModelTypeLLM {
		r.add(SeverityError, filename, "model_type", fmt.Sprintf("got %q, want %q", d.ModelType, catalog.ModelTypeLLM))
	}
	if strings.TrimSpace(d.Label.ZhHans) == "" {
		r.add(SeverityError, filename, "label.zh_Hans", "required field is empty")
	}
	if strings.TrimSpace(d.Label.EnUS) == "" {
		r.add(SeverityError, filename, "label.en_US", "required field is empty")
	}
	if d.ModelProperties.ContextSize <= 0 {
		r.add(SeverityError, filename, "model_properties.context_size",
			fmt.Sprintf("value %d must be positive", d.ModelProperties.ContextSize))
	}

	checkPrice(r, filename, "pricing.input", d.Pricing.Input)
	checkPrice(r, filename, "pricing.output", d.Pricing.Output)
	if d.Pricing.Unit == "" {
		r.add(SeverityError, filename, "pricing.unit", "required field is empty")
	} else if _, err := catalog.ParsePrice(d.Pricing.Unit); err != nil {
		r.add(SeverityError, filename, "pricing.unit", fmt.Sprintf("%q is not a decimal", d.Pricing.Unit))
	}
	if d.Pricing.Currency == "" {
		r.add(SeverityError, filename, "pricing.currency", "required field is empty")
	}

	seen := make(map[string]bool, len(d.Features))
	for _, f := range d.Features {
		if _, err := feature.Parse(f); err != nil {
			r.add(SeverityError, filename, "features", err.Error())
		}
		if seen[f] {
			r.add(SeverityWarning, filename, "features", fmt.Sprintf("duplicate feature %q", f))
		}
		seen[f] = true
	}

	if d.Model != "" && filename != "" {
		want := catalog.FileName(d.Model)
		if got := filepath.Base(filename); got != want {
			r.add(SeverityWarning, filename, "model",
				fmt.Sprintf("file name %q does not match model %q (expected %q)", got, d.Model, want))
		}
	}

	return r
}

func checkPrice(r *Result, filename, field, value string) {
	if value == "" {
		r.add(SeverityError, filename, field, "required field is empty")
		return
	}
	p, err := catalog.ParsePrice(value)
	if err != nil {
		r.add(SeverityError, filename, field, fmt.Sprintf("%q is not a decimal", value))
		return
	}
	if p.IsNegative() {
		r.add(SeverityError, filename, field, fmt.Sprintf("value %s is negative", value))
	}
}

// ValidateDirectory validates every loaded definition and reports files
// that could not be parsed at all.
func ValidateDirectory(d *catalog.Directory) *Result {
	r := &Result{}

	ids := make([]string, 0, len(d.Entries))
	for id := range d.Entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		e := d.Entries[id]
		issues := ValidateDefinition(e.Definition, e.FileName).Issues
		if len(e.Unreadable) > 0 {
			issues = withUnreadable(issues, e)
		}
		r.Issues = append(r.Issues, issues...)
	}
	for _, m := range d.Malformed {
		r.add(SeverityError, m.FileName, "-", m.Err.Error())
	}
	for _, dup := range d.Duplicates {
		r.add(SeverityError, dup.FileName, "model",
			fmt.Sprintf("model %q is already defined by %s", dup.Definition.Model, d.Entries[dup.Definition.Model].FileName))
	}

	return r
}

// withUnreadable replaces the zero-value complaints about wrong-typed fields
// with a single type error per field.
func withUnreadable(issues []Issue, e *catalog.Entry) []Issue {
	bad := make(map[string]bool, len(e.Unreadable))
	for _, path := range e.Unreadable {
		bad[path] = true
	}
	out := issues[:0]
	for _, i := range issues {
		if !bad[i.Field] {
			out = append(out, i)
		}
	}
	for _, path := range e.Unreadable {
		out = append(out, Issue{Severity: SeverityError, File: e.FileName, Field: path, Message: "value has the wrong type"})
	}
	return out
}

// FormatResult formats validation results for display.
func FormatResult(r *Result) string {
	if len(r.Issues) == 0 {
		return "Validation passed: no issues found."
	}

	var b strings.Builder
	errors := r.Errors()
	warnings := r.Warnings()

	if len(errors) > 0 {
		fmt.Fprintf(&b, "Errors (%d):\n", len(errors))
		for _, e := range errors {
			fmt.Fprintf(&b, "  %s\n", e)
		}
	}

	if len(warnings) > 0 {
		fmt.Fprintf(&b, "Warnings (%d):\n", len(warnings))
		for _, w := range warnings {
			fmt.Fprintf(&b, "  %s\n", w)
		}
	}

	return b.String()
}
