package ethereum

import (
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
)

// TxParams are the on-chain parameters of a mined transaction.
type TxParams struct {
	From string `json:"from"`
	// To is empty for contract creations.
	To       string `json:"to,omitempty"`
	Input    string `json:"input"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
	// Value is the transferred amount in wei, base 10.
	Value         string `json:"value"`
	BlockNumber   uint64 `json:"blockNumber"`
	Nonce         uint64 `json:"nonce"`
	OnChainStatus bool   `json:"onChainStatus"`
	GasUsed       uint64 `json:"gasUsed"`
	// ContractAddress is the contract deployed by a creation transaction.
	ContractAddress string `json:"contractAddress,omitempty"`
}

// Target is the account the transaction executes against: the recipient, or
// the deployed contract for a creation.
func (p *TxParams) Target() string {
	if p.To != "" {
		return p.To
	}

	return p.ContractAddress
}

// SimulationRequest replays the transaction on the state of its parent block.
func (p *TxParams) SimulationRequest(networkID string, save bool) *simulation.Request {
	return &simulation.Request{
		NetworkID:   networkID,
		BlockNumber: p.BlockNumber,
		From:        p.From,
		To:          p.To,
		Input:       p.Input,
		Gas:         p.Gas,
		GasPrice:    p.GasPrice,
		Value:       p.Value,
		Save:        save,
	}
}
