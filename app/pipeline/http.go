package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/lysyi3m/rss-digest/app/feed"
)

const maxBodySize = 10 << 20

type response struct {
	body        []byte
	contentType string
}

func download(ctx context.Context, client *http.Client, url, userAgent, accept string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, feed.NewError(feed.KindInvalidInput, url, fmt.Errorf("failed to create request: %w", err))
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	slog.Debug("Fetching source", "url", url)

	resp, err := client.Do(req)
	if err != nil {
		return nil, feed.NewError(feed.KindNetwork, url, fmt.Errorf("failed to fetch: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, feed.NewHTTPError(url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, feed.NewError(feed.KindNetwork, url, fmt.Errorf("failed to read response body: %w", err))
	}

	return &response{body: body, contentType: resp.Header.Get("Content-Type")}, nil
}
