// Package source fetches the remote model catalog.
package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// DefaultURL is the Novita catalog endpoint.
const DefaultURL = "https://api.novita.ai/v3/openai/models"

// Record is one entry of the remote catalog. Numeric fields are pointers so
// an absent field can be told apart from zero.
type Record struct {
	ID                   string   `json:"id"`
	DisplayName          string   `json:"display_name"`
	ContextSize          *int64   `json:"context_size"`
	InputTokenPricePerM  *int64   `json:"input_token_price_per_m"`
	OutputTokenPricePerM *int64   `json:"output_token_price_per_m"`
	Features             []string `json:"features"`
	Description          string   `json:"description"`
}

// Label is the display name used for both label languages.
func (r *Record) Label() string {
	if name := strings.TrimSpace(r.DisplayName); name != "" {
		return name
	}
	return r.ID
}

// Provider is the id prefix before the first slash.
func (r *Record) Provider() string {
	return ProviderOf(r.ID)
}

// ProviderOf returns the substring of id before the first "/".
func ProviderOf(id string) string {
	provider, _, _ := strings.Cut(id, "/")
	return provider
}

// Missing lists required numeric fields that are absent.
func (r *Record) Missing() []string {
	var missing []string
	if r.ContextSize == nil {
		missing = append(missing, "context_size")
	}
	if r.InputTokenPricePerM == nil {
		missing = append(missing, "input_token_price_per_m")
	}
	if r.OutputTokenPricePerM == nil {
		missing = append(missing, "output_token_price_per_m")
	}
	return missing
}

// Source produces the current catalog.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Fetch returns every catalog record in catalog order. Any error is fatal
	// for the run.
	Fetch(ctx context.Context) ([]Record, error)
}

// ErrFetch matches every FetchError.
var ErrFetch = errors.New("catalog fetch failed")

// FetchError reports a catalog that could not be retrieved or understood.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching catalog from %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is implements errors.Is support.
func (e *FetchError) Is(target error) bool { return target == ErrFetch }

type catalogResponse struct {
	Data *[]Record `json:"data"`
}

// decode parses a catalog document, dropping records without an id and
// repeated ids (first occurrence keeps its position).
func decode(origin string, body []byte) ([]Record, error) {
	var resp catalogResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Source: origin, Err: fmt.Errorf("parsing catalog: %w", err)}
	}
	if resp.Data == nil {
		return nil, &FetchError{Source: origin, Err: errors.New(`catalog has no "data" array`)}
	}

	seen := make(map[string]bool, len(*resp.Data))
	records := make([]Record, 0, len(*resp.Data))
	for _, r := range *resp.Data {
		if r.ID == "" {
			slog.Warn("skipping catalog entry without id", "source", origin)
			continue
		}
		if seen[r.ID] {
			slog.Warn("duplicate catalog entry, keeping first", "source", origin, "model", r.ID)
			continue
		}
		seen[r.ID] = true
		records = append(records, r)
	}
	return records, nil
}
