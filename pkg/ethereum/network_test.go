package ethereum_test

import (
	"testing"

	"github.com/4rdii/transaction-debugger-agent/pkg/ethereum"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkName(t *testing.T) {
	assert.Equal(t, "Ethereum Mainnet", ethereum.NetworkName("1"))
	assert.Equal(t, "Base", ethereum.NetworkName("8453"))
	assert.Equal(t, "Network 999", ethereum.NetworkName("999"))
}

func TestConfig_RPCURLPriority(t *testing.T) {
	cfg := &ethereum.Config{
		AlchemyKey: "key",
		RPCURLs:    map[string]string{"137": "https://polygon.example"},
	}

	t.Setenv("RPC_URL_10", "https://optimism.example")

	tests := []struct {
		network string
		want    string
	}{
		{"137", "https://polygon.example"},
		{"10", "https://optimism.example"},
		{"1", "https://eth-mainnet.g.alchemy.com/v2/key"},
		{"56", "https://bsc-dataseed.binance.org"},
	}

	for _, tt := range tests {
		t.Run(tt.network, func(t *testing.T) {
			url, err := cfg.RPCURL(tt.network)
			require.NoError(t, err)
			assert.Equal(t, tt.want, url)
		})
	}
}

func TestConfig_RPCURLPublicFallbackWithoutKey(t *testing.T) {
	url, err := (&ethereum.Config{}).RPCURL("8453")
	require.NoError(t, err)
	assert.Equal(t, "https://base.llamarpc.com", url)
}

func TestConfig_RPCURLUnknownNetwork(t *testing.T) {
	_, err := (&ethereum.Config{}).RPCURL("424242")
	require.ErrorIs(t, err, ethereum.ErrUnsupportedNetwork)
	assert.Equal(t, "no RPC URL configured for network 424242", err.Error())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		urls    map[string]string
		wantErr bool
	}{
		{"empty", nil, false},
		{"valid", map[string]string{"1": "https://rpc.example"}, false},
		{"non numeric key", map[string]string{"mainnet": "https://rpc.example"}, true},
		{"bad scheme", map[string]string{"1": "ws://rpc.example"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&ethereum.Config{RPCURLs: tt.urls}).Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
