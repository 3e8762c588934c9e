package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"SignalDeck/internal/domain/models"
	drepo "SignalDeck/internal/domain/repository"
	svccache "SignalDeck/internal/service/cache"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
)

const lastGoodKey = "feed/last_good"

// Client implements a FeedSource over the published signals JSON document.
type Client struct {
	url      string
	httpc    *xhttp.Client
	fallback svccache.BytesCache
	staleTTL time.Duration
	logger   *applogger.Logger
}

// New creates a new feed client. When the upstream is unreachable the last
// good payload is served back within staleTTL, marked stale.
func New(url string, httpc *xhttp.Client, fallback svccache.BytesCache, staleTTL time.Duration, logger *applogger.Logger) drepo.FeedSource {
	return &Client{
		url:      url,
		httpc:    httpc,
		fallback: fallback,
		staleTTL: staleTTL,
		logger:   logger,
	}
}

// Fetch downloads the feed document. The request carries a per-call unix
// millisecond query param so CDN and browser caches never satisfy it.
func (c *Client) Fetch(ctx context.Context) (*models.FeedDocument, error) {
	var raw []byte
	err := c.httpc.SendAndParse(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodGet,
		URL:    c.url,
		Headers: map[string]string{
			"Cache-Control": "no-cache",
			"Pragma":        "no-cache",
		},
		QueryParams: map[string][]string{
			"t": {strconv.FormatInt(time.Now().UnixMilli(), 10)},
		},
	}, &raw)
	if err != nil {
		return c.serveStale(fmt.Errorf("feed fetch: %w", err))
	}

	doc, perr := decode(raw)
	if perr != nil {
		return c.serveStale(fmt.Errorf("feed decode: %w", perr))
	}

	if c.fallback != nil {
		if serr := c.fallback.SetBytes(lastGoodKey, raw, c.staleTTL); serr != nil {
			c.logger.Warn("feed: keep last good payload", applogger.Error(serr))
		}
	}
	return doc, nil
}

func (c *Client) serveStale(cause error) (*models.FeedDocument, error) {
	if c.fallback == nil {
		return nil, cause
	}
	raw, ok, err := c.fallback.GetBytes(lastGoodKey)
	if err != nil || !ok {
		return nil, cause
	}
	doc, perr := decode(raw)
	if perr != nil {
		return nil, cause
	}
	c.logger.Warn("feed: serving stale payload", applogger.Error(cause))
	doc.Stale = true
	return doc, nil
}

func decode(raw []byte) (*models.FeedDocument, error) {
	var doc models.FeedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
