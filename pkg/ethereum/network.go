package ethereum

import (
	"fmt"
	"os"
)

type Network struct {
	ID   string
	Name string
	// AlchemySubdomain is empty for networks Alchemy does not serve.
	AlchemySubdomain string
	PublicRPC        string
}

var networkMap = map[string]Network{
	"1":      {ID: "1", Name: "Ethereum Mainnet", AlchemySubdomain: "eth-mainnet", PublicRPC: "https://eth.llamarpc.com"},
	"10":     {ID: "10", Name: "Optimism", AlchemySubdomain: "opt-mainnet", PublicRPC: "https://optimism.llamarpc.com"},
	"56":     {ID: "56", Name: "BNB Smart Chain", PublicRPC: "https://bsc-dataseed.binance.org"},
	"100":    {ID: "100", Name: "Gnosis", PublicRPC: "https://rpc.gnosischain.com"},
	"137":    {ID: "137", Name: "Polygon", AlchemySubdomain: "polygon-mainnet", PublicRPC: "https://polygon.llamarpc.com"},
	"250":    {ID: "250", Name: "Fantom", PublicRPC: "https://rpc.ftm.tools"},
	"324":    {ID: "324", Name: "zkSync Era", AlchemySubdomain: "zksync-mainnet", PublicRPC: "https://mainnet.era.zksync.io"},
	"8453":   {ID: "8453", Name: "Base", AlchemySubdomain: "base-mainnet", PublicRPC: "https://base.llamarpc.com"},
	"42161":  {ID: "42161", Name: "Arbitrum One", AlchemySubdomain: "arb-mainnet", PublicRPC: "https://arbitrum.llamarpc.com"},
	"43114":  {ID: "43114", Name: "Avalanche C-Chain", AlchemySubdomain: "avax-mainnet", PublicRPC: "https://api.avax.network/ext/bc/C/rpc"},
	"59144":  {ID: "59144", Name: "Linea", AlchemySubdomain: "linea-mainnet", PublicRPC: "https://rpc.linea.build"},
	"80094":  {ID: "80094", Name: "Berachain", PublicRPC: "https://rpc.berachain.com"},
	"81457":  {ID: "81457", Name: "Blast", AlchemySubdomain: "blast-mainnet", PublicRPC: "https://rpc.blast.io"},
	"534352": {ID: "534352", Name: "Scroll", AlchemySubdomain: "scroll-mainnet", PublicRPC: "https://rpc.scroll.io"},
}

// GetNetwork returns the network information for the given chain id.
func GetNetwork(networkID string) (*Network, error) {
	network, exists := networkMap[networkID]
	if !exists {
		return nil, fmt.Errorf("%w %s", ErrUnsupportedNetwork, networkID)
	}

	return &network, nil
}

// NetworkName returns a display name, falling back to "Network {id}".
func NetworkName(networkID string) string {
	if network, ok := networkMap[networkID]; ok {
		return network.Name
	}

	return "Network " + networkID
}

// RPCURL resolves the endpoint for a network. Priority: config override,
// RPC_URL_{id} environment variable, Alchemy, public fallback.
func (c *Config) RPCURL(networkID string) (string, error) {
	if url := c.RPCURLs[networkID]; url != "" {
		return url, nil
	}

	if url := os.Getenv("RPC_URL_" + networkID); url != "" {
		return url, nil
	}

	network, err := GetNetwork(networkID)
	if err != nil {
		return "", err
	}

	if c.AlchemyKey != "" && network.AlchemySubdomain != "" {
		return fmt.Sprintf("https://%s.g.alchemy.com/v2/%s", network.AlchemySubdomain, c.AlchemyKey), nil
	}

	return network.PublicRPC, nil
}
