package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"
	"github.com/willie68/go_mapview/internal/model"
)

// Fetcher downloads and decodes one tile
type Fetcher func(ctx context.Context, id model.TileID, url string) (*Texture, error)

// HTTPFetcher fetches tiles with a shared client, so connections and the
// http cache are reused for all tiles.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	log       *slog.Logger
}

func NewHTTPFetcher(client *http.Client, userAgent string, log *slog.Logger) *HTTPFetcher {
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &HTTPFetcher{
		client:    client,
		userAgent: userAgent,
		log:       log,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, id model.TileID, url string) (*Texture, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &TransportError{URL: url, Err: errors.Wrap(err, "failed to create request")}
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "image/png,image/jpeg,image/webp,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	f.log.Debug(fmt.Sprintf("downloaded '%s': %s", url, resp.Status))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, &ResponseError{URL: url, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: errors.Wrapf(err, "reading tile %s", id)}
	}

	tex, err := NewTexture(data)
	if err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}
	return tex, nil
}
