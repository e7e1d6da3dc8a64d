package source

import (
	"context"
	"log/slog"

	"github.com/everstacklabs/modelsync/internal/httpclient"
)

// HTTP reads the catalog from the provider's public endpoint.
type HTTP struct {
	url    string
	client *httpclient.Client
}

// NewHTTP creates an HTTP source. An empty url uses DefaultURL.
func NewHTTP(url string, client *httpclient.Client) *HTTP {
	if url == "" {
		url = DefaultURL
	}
	return &HTTP{url: url, client: client}
}

func (h *HTTP) Name() string { return h.url }

func (h *HTTP) Fetch(ctx context.Context) ([]Record, error) {
	resp, err := h.client.Get(ctx, h.url, nil)
	if err != nil {
		return nil, &FetchError{Source: h.url, Err: err}
	}

	records, err := decode(h.url, resp.Body)
	if err != nil {
		return nil, err
	}

	slog.Info("catalog fetched", "url", h.url, "models", len(records), "cached", resp.FromCache)
	return records, nil
}
