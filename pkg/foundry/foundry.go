// Package foundry shells out to Foundry's cast for trace replays and
// historical read-only calls.
package foundry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/sirupsen/logrus"
)

const (
	serviceName = "foundry"

	maxRunOutput   = 8000
	maxRunError    = 2000
	maxCallError   = 1000
	emptyResponse  = "(empty response)"
	truncatedLabel = "\n... (truncated)"
)

// ErrCastUnavailable is returned when the cast binary cannot be executed.
var ErrCastUnavailable = errors.New("cast CLI not available. Install Foundry: https://getfoundry.sh")

type Config struct {
	CastPath string `yaml:"castPath" default:"cast"`
}

func (c *Config) Validate() error {
	if c.CastPath == "" {
		return errors.New("foundry castPath is required")
	}

	return nil
}

// RPCResolver maps a network id to an RPC endpoint.
type RPCResolver interface {
	RPCURL(networkID string) (string, error)
}

type Runner struct {
	log    logrus.FieldLogger
	config *Config
	rpc    RPCResolver
}

func NewRunner(log logrus.FieldLogger, config *Config, rpc RPCResolver) *Runner {
	return &Runner{
		log:    log.WithField("component", "foundry"),
		config: config,
		rpc:    rpc,
	}
}

// Available reports whether `cast --version` succeeds.
func (r *Runner) Available(ctx context.Context) bool {
	return exec.CommandContext(ctx, r.config.CastPath, "--version").Run() == nil
}

// Run replays a mined transaction and returns its trace. A failing replay is
// reported in the returned text, not as an error.
func (r *Runner) Run(ctx context.Context, txHash, networkID string) (string, error) {
	rpcURL, err := r.prepare(ctx, networkID)
	if err != nil {
		return "", err
	}

	out, err := r.exec(ctx, "run", txHash, "--rpc-url", rpcURL)
	if err != nil {
		return truncate("cast run failed: "+err.Error(), maxRunError, ""), nil
	}

	return truncate(out, maxRunOutput, truncatedLabel), nil
}

// Call performs a static call against the state at blockNumber.
func (r *Runner) Call(ctx context.Context, address, signature string, args []string, networkID string, blockNumber uint64) (string, error) {
	rpcURL, err := r.prepare(ctx, networkID)
	if err != nil {
		return "", err
	}

	argv := append([]string{"call", address, signature}, args...)
	argv = append(argv, "--rpc-url", rpcURL, "--block", strconv.FormatUint(blockNumber, 10))

	out, err := r.exec(ctx, argv...)
	if err != nil {
		return truncate("cast call failed: "+err.Error(), maxCallError, ""), nil
	}

	if out = strings.TrimSpace(out); out == "" {
		return emptyResponse, nil
	}

	return out, nil
}

func (r *Runner) prepare(ctx context.Context, networkID string) (string, error) {
	if !r.Available(ctx) {
		return "", ErrCastUnavailable
	}

	return r.rpc.RPCURL(networkID)
}

func (r *Runner) exec(ctx context.Context, args ...string) (string, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, r.config.CastPath, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	common.ObserveUpstream(serviceName, "cast_"+args[0], time.Since(start).Seconds(), err)

	if err != nil {
		r.log.WithError(err).WithField("command", args[0]).Debug("cast exited with error")

		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return "", fmt.Errorf("%w: %s", err, msg)
		}

		return "", err
	}

	return stdout.String(), nil
}

// truncate caps s at limit runes.
func truncate(s string, limit int, suffix string) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	cut, n := 0, 0
	for i := range s {
		if n == limit {
			cut = i

			break
		}

		n++
	}

	return s[:cut] + suffix
}
