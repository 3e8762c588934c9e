package dispatch

import (
	"context"
	"fmt"
	"io"

	drepo "SignalDeck/internal/domain/repository"
	xhttp "SignalDeck/pkg/http"
	applogger "SignalDeck/pkg/logger"
)

// Config holds the remote generation workflow endpoint.
type Config struct {
	URL           string
	Token         string
	Ref           string
	SuccessStatus int
}

// Client implements a Dispatcher over a workflow-dispatch style endpoint.
type Client struct {
	cfg    Config
	httpc  *xhttp.Client
	logger *applogger.Logger
}

// New creates a new dispatch client.
func New(cfg Config, httpc *xhttp.Client, logger *applogger.Logger) drepo.Dispatcher {
	return &Client{cfg: cfg, httpc: httpc, logger: logger}
}

type dispatchBody struct {
	Ref    string            `json:"ref"`
	Inputs map[string]string `json:"inputs"`
}

// Trigger fires the remote generation job. It returns nil only when the
// endpoint answered with the configured success status.
func (c *Client) Trigger(ctx context.Context, language, source string) error {
	resp, err := c.httpc.SendRequest(ctx, &xhttp.RequestOptions{
		Method: xhttp.MethodPost,
		URL:    c.cfg.URL,
		Headers: map[string]string{
			"Authorization": "Bearer " + c.cfg.Token,
			"Accept":        "application/vnd.github+json",
			"Content-Type":  "application/json",
		},
		Body: dispatchBody{
			Ref: c.cfg.Ref,
			Inputs: map[string]string{
				"language":       language,
				"trigger_source": source,
			},
		},
	})
	if err != nil {
		return fmt.Errorf("dispatch request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != c.cfg.SuccessStatus {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Error("dispatch rejected",
			applogger.Int("status", resp.StatusCode),
			applogger.String("body", string(body)),
		)
		return fmt.Errorf("dispatch rejected: status %d", resp.StatusCode)
	}

	c.logger.Info("dispatch accepted",
		applogger.String("language", language),
		applogger.String("source", source),
	)
	return nil
}
