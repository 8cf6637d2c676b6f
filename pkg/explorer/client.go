// Package explorer looks up verified contract ABIs and sources from a block
// explorer.
package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/sirupsen/logrus"
)

const serviceName = "explorer"

type apiResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// resultText returns the result when the explorer sent it as a string, which
// it does for both payloads and error descriptions.
func (r *apiResponse) resultText() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err != nil {
		return string(r.Result)
	}

	return s
}

type Client struct {
	log    logrus.FieldLogger
	config *Config
	http   *http.Client
}

func NewClient(log logrus.FieldLogger, config *Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		log:    log.WithField("component", "explorer"),
		config: config,
		http:   httpClient,
	}
}

func (c *Client) call(ctx context.Context, action, address, networkID string) (*apiResponse, error) {
	if c.config.APIKey == "" {
		return nil, ErrAPIKeyMissing
	}

	query := url.Values{}
	query.Set("chainid", networkID)
	query.Set("module", "contract")
	query.Set("action", action)
	query.Set("address", address)
	query.Set("apikey", c.config.APIKey)

	start := time.Now()
	rsp, err := c.get(ctx, c.config.BaseURL+"?"+query.Encode())

	common.ObserveUpstream(serviceName, action, time.Since(start).Seconds(), err)

	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"action":     action,
		"address":    address,
		"network_id": networkID,
		"status":     rsp.Status,
	}).Debug("Explorer lookup completed")

	return rsp, nil
}

func (c *Client) get(ctx context.Context, target string) (*apiResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build explorer request: %w", err)
	}

	httpRsp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request failed: %w", err)
	}
	defer httpRsp.Body.Close()

	body, err := io.ReadAll(httpRsp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read explorer response: %w", err)
	}

	if httpRsp.StatusCode < 200 || httpRsp.StatusCode >= 300 {
		return nil, fmt.Errorf("explorer API error %d: %s", httpRsp.StatusCode, string(body))
	}

	var rsp apiResponse
	if err := json.Unmarshal(body, &rsp); err != nil {
		return nil, fmt.Errorf("failed to decode explorer response: %w", err)
	}

	return &rsp, nil
}
