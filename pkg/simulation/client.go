// Package simulation is a client for the transaction simulation service that
// executes a transaction against historical chain state and returns a fully
// decoded call trace.
package simulation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/sirupsen/logrus"
)

const serviceName = "simulation"

// ErrMissingCallTrace is returned when a simulation succeeds but carries no
// call trace.
var ErrMissingCallTrace = errors.New("simulation response has no call trace")

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
		log:    log.WithField("component", "simulation"),
		config: config,
		http:   httpClient,
	}
}

// Simulate runs one simulation. Non-2xx statuses and API-level errors are
// returned as errors carrying the upstream message.
func (c *Client) Simulate(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	rsp, err := c.simulate(ctx, req)

	common.ObserveUpstream(serviceName, "simulate", time.Since(start).Seconds(), err)

	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"network_id": req.NetworkID,
		"status":     rsp.Transaction.Status,
		"gas_used":   rsp.Transaction.GasUsed,
		"overrides":  len(req.StateObjects),
	}).Debug("Simulation completed")

	return rsp, nil
}

func (c *Client) simulate(ctx context.Context, req *Request) (*Response, error) {
	payload, err := json.Marshal(req.body())
	if err != nil {
		return nil, fmt.Errorf("failed to encode simulation request: %w", err)
	}

	url := fmt.Sprintf("%s/account/%s/project/%s/simulate", c.config.BaseURL, c.config.AccountSlug, c.config.ProjectSlug)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build simulation request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Access-Key", c.config.AccessKey)

	httpRsp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("simulation request failed: %w", err)
	}
	defer httpRsp.Body.Close()

	body, err := io.ReadAll(httpRsp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read simulation response: %w", err)
	}

	if httpRsp.StatusCode < 200 || httpRsp.StatusCode >= 300 {
		return nil, fmt.Errorf("simulation API error %d: %s", httpRsp.StatusCode, string(body))
	}

	var rsp Response
	if err := json.Unmarshal(body, &rsp); err != nil {
		return nil, fmt.Errorf("failed to decode simulation response: %w", err)
	}

	if rsp.Error != nil {
		return nil, fmt.Errorf("simulation error: %s (%s)", rsp.Error.Message, rsp.Error.Slug)
	}

	if rsp.Transaction.TransactionInfo.CallTrace == nil {
		return nil, ErrMissingCallTrace
	}

	return &rsp, nil
}
