package ethereum

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/0xsequence/ethkit/ethrpc"
	"github.com/0xsequence/ethkit/go-ethereum/common"
	"github.com/0xsequence/ethkit/go-ethereum/common/hexutil"
	metrics "github.com/4rdii/transaction-debugger-agent/pkg/common"
	"github.com/sirupsen/logrus"
)

const serviceName = "chain"

// headerTransport adds custom headers to requests and respects context cancellation
type headerTransport struct {
	headers map[string]string
	base    http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	if req.Context().Err() != nil {
		return nil, req.Context().Err()
	}

	return t.base.RoundTrip(req)
}

type rpcTransaction struct {
	From         common.Address  `json:"from"`
	To           *common.Address `json:"to"`
	Input        hexutil.Bytes   `json:"input"`
	Gas          hexutil.Uint64  `json:"gas"`
	GasPrice     *hexutil.Big    `json:"gasPrice"`
	MaxFeePerGas *hexutil.Big    `json:"maxFeePerGas"`
	Value        *hexutil.Big    `json:"value"`
	Nonce        hexutil.Uint64  `json:"nonce"`
}

type rpcReceipt struct {
	BlockNumber     hexutil.Uint64  `json:"blockNumber"`
	Status          hexutil.Uint64  `json:"status"`
	GasUsed         hexutil.Uint64  `json:"gasUsed"`
	ContractAddress *common.Address `json:"contractAddress"`
}

// Provider fetches transactions over JSON-RPC. One ethrpc provider is created
// lazily per network and reused.
type Provider struct {
	log    logrus.FieldLogger
	config *Config
	http   *http.Client

	mu        sync.Mutex
	providers map[string]*ethrpc.Provider
}

func NewProvider(log logrus.FieldLogger, config *Config) *Provider {
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
		},
	}

	httpClient.Transport = &headerTransport{
		headers: config.Headers,
		base:    httpClient.Transport,
	}

	return &Provider{
		log:       log.WithField("component", "chain_provider"),
		config:    config,
		http:      httpClient,
		providers: make(map[string]*ethrpc.Provider),
	}
}

// RPCURL exposes endpoint resolution to other collaborators.
func (p *Provider) RPCURL(networkID string) (string, error) {
	return p.config.RPCURL(networkID)
}

func (p *Provider) rpc(networkID string) (*ethrpc.Provider, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if rpc, ok := p.providers[networkID]; ok {
		return rpc, nil
	}

	url, err := p.config.RPCURL(networkID)
	if err != nil {
		return nil, err
	}

	rpc, err := ethrpc.NewProvider(url, ethrpc.WithHTTPClient(p.http))
	if err != nil {
		return nil, fmt.Errorf("failed to create RPC provider for network %s: %w", networkID, err)
	}

	p.providers[networkID] = rpc

	return rpc, nil
}

// FetchTxParams loads a transaction and its receipt.
func (p *Provider) FetchTxParams(ctx context.Context, txHash, networkID string) (*TxParams, error) {
	rpc, err := p.rpc(networkID)
	if err != nil {
		return nil, err
	}

	var tx *rpcTransaction

	if err := p.do(ctx, rpc, "eth_getTransactionByHash", ethrpc.NewCallBuilder[*rpcTransaction]("eth_getTransactionByHash", nil, txHash).Into(&tx)); err != nil {
		return nil, err
	}

	if tx == nil {
		return nil, fmt.Errorf("%w: %s on network %s", ErrTransactionNotFound, txHash, networkID)
	}

	var receipt *rpcReceipt

	if err := p.do(ctx, rpc, "eth_getTransactionReceipt", ethrpc.NewCallBuilder[*rpcReceipt]("eth_getTransactionReceipt", nil, txHash).Into(&receipt)); err != nil {
		return nil, err
	}

	if receipt == nil {
		return nil, fmt.Errorf("%w: %s", ErrReceiptNotFound, txHash)
	}

	params := &TxParams{
		From:          tx.From.Hex(),
		Input:         hexutil.Encode(tx.Input),
		Gas:           uint64(tx.Gas),
		GasPrice:      "0",
		Value:         "0",
		BlockNumber:   uint64(receipt.BlockNumber),
		Nonce:         uint64(tx.Nonce),
		OnChainStatus: receipt.Status == 1,
		GasUsed:       uint64(receipt.GasUsed),
	}

	// Contract creations have no recipient.
	if tx.To != nil {
		params.To = tx.To.Hex()
	} else if receipt.ContractAddress != nil {
		params.ContractAddress = receipt.ContractAddress.Hex()
	}

	switch {
	case tx.GasPrice != nil:
		params.GasPrice = tx.GasPrice.ToInt().String()
	case tx.MaxFeePerGas != nil:
		params.GasPrice = tx.MaxFeePerGas.ToInt().String()
	}

	if tx.Value != nil {
		params.Value = tx.Value.ToInt().String()
	}

	p.log.WithFields(logrus.Fields{
		"tx_hash":      txHash,
		"network_id":   networkID,
		"block_number": params.BlockNumber,
	}).Debug("Fetched transaction parameters")

	return params, nil
}

func (p *Provider) do(ctx context.Context, rpc *ethrpc.Provider, method string, call ethrpc.Call) error {
	start := time.Now()
	_, err := rpc.Do(ctx, call)

	metrics.ObserveUpstream(serviceName, method, time.Since(start).Seconds(), err)

	if err != nil {
		return fmt.Errorf("%s failed: %w", method, err)
	}

	return nil
}
