package simulation

import "encoding/json"

// CallTrace is one frame of the nested call trace returned by the simulation
// service.
type CallTrace struct {
	Type          string        `json:"type"`
	From          string        `json:"from"`
	To            string        `json:"to"`
	Input         string        `json:"input"`
	Output        string        `json:"output,omitempty"`
	Gas           uint64        `json:"gas"`
	GasUsed       uint64        `json:"gas_used"`
	Value         *string       `json:"value,omitempty"`
	Error         string        `json:"error,omitempty"`
	ErrorReason   string        `json:"error_reason,omitempty"`
	ContractName  string        `json:"contract_name,omitempty"`
	FunctionName  string        `json:"function_name,omitempty"`
	DecodedInput  []SolType     `json:"decoded_input,omitempty"`
	DecodedOutput []SolType     `json:"decoded_output,omitempty"`
	Calls         []*CallTrace  `json:"calls,omitempty"`
	Logs          []CallLog     `json:"logs,omitempty"`
	BalanceDiff   []BalanceDiff `json:"balance_diff,omitempty"`
}

// SolType is a decoded ABI parameter. Value may be any JSON shape.
type SolType struct {
	Name       string          `json:"name"`
	Type       string          `json:"type"`
	Value      json.RawMessage `json:"value,omitempty"`
	Components []SolType       `json:"components,omitempty"`
}

type CallLog struct {
	Name      string    `json:"name"`
	Anonymous bool      `json:"anonymous"`
	Inputs    []SolType `json:"inputs"`
	Raw       struct {
		Address string   `json:"address"`
		Topics  []string `json:"topics"`
		Data    string   `json:"data"`
	} `json:"raw"`
}

// BalanceDiff is a native balance change. Original and Dirty are decimal or
// 0x-prefixed integer strings.
type BalanceDiff struct {
	Address  string `json:"address"`
	IsMiner  bool   `json:"is_miner"`
	Original string `json:"original"`
	Dirty    string `json:"dirty"`
}

type TokenInfo struct {
	Standard        string `json:"standard"`
	Type            string `json:"type"`
	ContractAddress string `json:"contract_address"`
	Symbol          string `json:"symbol"`
	Name            string `json:"name"`
	Logo            string `json:"logo,omitempty"`
	Decimals        int    `json:"decimals"`
	DollarValue     string `json:"dollar_value,omitempty"`
}

// AssetChange is a token movement reported by the simulation service.
type AssetChange struct {
	TokenInfo   TokenInfo `json:"token_info"`
	Type        string    `json:"type"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Amount      string    `json:"amount"`
	RawAmount   string    `json:"raw_amount"`
	DollarValue string    `json:"dollar_value,omitempty"`
}

type StateDiff struct {
	Address  string          `json:"address"`
	SolType  *SolType        `json:"soltype,omitempty"`
	Original json.RawMessage `json:"original,omitempty"`
	Dirty    json.RawMessage `json:"dirty,omitempty"`
}

type StackFrame struct {
	Contract     string `json:"contract"`
	ContractName string `json:"contract_name,omitempty"`
	Name         string `json:"name"`
	Line         int    `json:"line"`
	FileIndex    *int   `json:"file_index,omitempty"`
	Code         string `json:"code,omitempty"`
	Error        string `json:"error,omitempty"`
	ErrorReason  string `json:"error_reason,omitempty"`
}

type TransactionInfo struct {
	CallTrace    *CallTrace    `json:"call_trace"`
	AssetChanges []AssetChange `json:"asset_changes,omitempty"`
	StateDiff    []StateDiff   `json:"state_diff,omitempty"`
	Logs         []CallLog     `json:"logs,omitempty"`
	BalanceDiff  []BalanceDiff `json:"balance_diff,omitempty"`
	StackTrace   []StackFrame  `json:"stack_trace,omitempty"`
}

type ErrorInfo struct {
	Address      string `json:"address"`
	ErrorMessage string `json:"error_message"`
}

type Transaction struct {
	Hash            string          `json:"hash"`
	Status          bool            `json:"status"`
	GasUsed         uint64          `json:"gas_used"`
	BlockNumber     uint64          `json:"block_number"`
	NetworkID       string          `json:"network_id"`
	ErrorInfo       *ErrorInfo      `json:"error_info,omitempty"`
	TransactionInfo TransactionInfo `json:"transaction_info"`
}

type Metadata struct {
	ID        string `json:"id"`
	ProjectID string `json:"project_id"`
	Status    bool   `json:"status"`
	CreatedAt string `json:"created_at"`
}

type APIError struct {
	Slug    string `json:"slug"`
	Message string `json:"message"`
}

// Response is the simulate endpoint payload.
type Response struct {
	Transaction Transaction `json:"transaction"`
	Simulation  Metadata    `json:"simulation"`
	Error       *APIError   `json:"error,omitempty"`
}

// StateOverride replaces an account's balance and/or storage slots for one
// simulation.
type StateOverride struct {
	Balance string            `json:"balance,omitempty"`
	Storage map[string]string `json:"storage,omitempty"`
}

// Request describes a transaction to simulate.
type Request struct {
	NetworkID string
	// BlockNumber is the block of the original transaction; the simulation
	// runs on the state of the parent block.
	BlockNumber  uint64
	From         string
	To           string
	Input        string
	Gas          uint64
	GasPrice     string
	Value        string
	Save         bool
	StateObjects map[string]StateOverride
}

type requestBody struct {
	NetworkID          string                   `json:"network_id"`
	BlockNumber        uint64                   `json:"block_number"`
	From               string                   `json:"from"`
	To                 string                   `json:"to,omitempty"`
	Input              string                   `json:"input"`
	Gas                uint64                   `json:"gas"`
	GasPrice           string                   `json:"gas_price"`
	Value              string                   `json:"value"`
	Save               bool                     `json:"save"`
	SaveIfFails        bool                     `json:"save_if_fails"`
	SimulationType     string                   `json:"simulation_type"`
	GenerateAccessList bool                     `json:"generate_access_list"`
	StateObjects       map[string]StateOverride `json:"state_objects,omitempty"`
}

func (r *Request) body() requestBody {
	block := r.BlockNumber
	if block > 0 {
		block--
	}

	return requestBody{
		NetworkID:          r.NetworkID,
		BlockNumber:        block,
		From:               r.From,
		To:                 r.To,
		Input:              r.Input,
		Gas:                r.Gas,
		GasPrice:           r.GasPrice,
		Value:              r.Value,
		Save:               r.Save,
		SaveIfFails:        r.Save,
		SimulationType:     "full",
		GenerateAccessList: false,
		StateObjects:       r.StateObjects,
	}
}
