// Package analysis holds the structures produced by the transaction analysis
// pipeline: the normalised call tree, token flows, semantic actions, risk
// flags and failure reasons.
package analysis

import (
	"time"
)

type CallType string

const (
	CallTypeCall         CallType = "CALL"
	CallTypeDelegateCall CallType = "DELEGATECALL"
	CallTypeStaticCall   CallType = "STATICCALL"
	CallTypeCreate       CallType = "CREATE"
	CallTypeCreate2      CallType = "CREATE2"
)

// Param is a decoded ABI parameter with its value rendered as text.
type Param struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// CallNode is one call frame of a normalised trace.
type CallNode struct {
	ID               CallID      `json:"id"`
	Depth            int         `json:"depth"`
	CallType         CallType    `json:"callType"`
	Caller           string      `json:"caller"`
	Callee           string      `json:"callee"`
	ContractName     string      `json:"contractName,omitempty"`
	FunctionName     string      `json:"functionName,omitempty"`
	FunctionSelector string      `json:"functionSelector,omitempty"`
	DecodedInputs    []Param     `json:"decodedInputs"`
	DecodedOutputs   []Param     `json:"decodedOutputs"`
	GasUsed          uint64      `json:"gasUsed"`
	ValueWei         string      `json:"valueWei"`
	Success          bool        `json:"success"`
	RevertReason     string      `json:"revertReason,omitempty"`
	Protocol         string      `json:"protocol,omitempty"`
	Action           string      `json:"action,omitempty"`
	Children         []*CallNode `json:"children"`
}

// Input returns the first decoded input whose name is one of names.
func (n *CallNode) Input(names ...string) (Param, bool) {
	for _, p := range n.DecodedInputs {
		for _, name := range names {
			if p.Name == name {
				return p, true
			}
		}
	}

	return Param{}, false
}

// InputOfType returns the first decoded input with the given ABI type.
func (n *CallNode) InputOfType(typ string) (Param, bool) {
	for _, p := range n.DecodedInputs {
		if p.Type == typ {
			return p, true
		}
	}

	return Param{}, false
}

type TokenFlowType string

const (
	FlowTransfer       TokenFlowType = "Transfer"
	FlowMint           TokenFlowType = "Mint"
	FlowBurn           TokenFlowType = "Burn"
	FlowNativeTransfer TokenFlowType = "NativeTransfer"
)

type TokenFlow struct {
	Type            TokenFlowType `json:"type"`
	From            string        `json:"from"`
	To              string        `json:"to"`
	TokenAddress    string        `json:"tokenAddress"`
	TokenSymbol     string        `json:"tokenSymbol"`
	TokenName       string        `json:"tokenName"`
	Decimals        int           `json:"decimals"`
	RawAmount       string        `json:"rawAmount"`
	FormattedAmount string        `json:"formattedAmount"`
	DollarValue     string        `json:"dollarValue,omitempty"`
}

type ActionType string

const (
	ActionSwap        ActionType = "Swap"
	ActionApprove     ActionType = "Approve"
	ActionBridge      ActionType = "Bridge"
	ActionDeposit     ActionType = "Deposit"
	ActionWithdraw    ActionType = "Withdraw"
	ActionLiquidation ActionType = "Liquidation"
	ActionFlashloan   ActionType = "Flashloan"
	ActionTransfer    ActionType = "Transfer"
	ActionMulticall   ActionType = "Multicall"
	ActionUnknown     ActionType = "Unknown"
)

type SemanticAction struct {
	Type              ActionType `json:"type"`
	Protocol          string     `json:"protocol,omitempty"`
	CallID            CallID     `json:"callId"`
	Description       string     `json:"description"`
	InvolvedTokens    []string   `json:"involvedTokens"`
	InvolvedAddresses []string   `json:"involvedAddresses"`
}

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type RiskFlag struct {
	Level       RiskLevel `json:"level"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CallID      *CallID   `json:"callId,omitempty"`
}

type FailureReason struct {
	RootCallID  CallID `json:"rootCallId"`
	Reason      string `json:"reason"`
	Explanation string `json:"explanation"`
}

// Result is the complete analysis of one transaction.
type Result struct {
	TxHash          string           `json:"txHash"`
	NetworkID       string           `json:"networkId"`
	Success         bool             `json:"success"`
	GasUsed         uint64           `json:"gasUsed"`
	BlockNumber     uint64           `json:"blockNumber"`
	CallTree        *CallTree        `json:"callTree"`
	TokenFlows      []TokenFlow      `json:"tokenFlows"`
	SemanticActions []SemanticAction `json:"semanticActions"`
	RiskFlags       []RiskFlag       `json:"riskFlags"`
	FailureReason   *FailureReason   `json:"failureReason,omitempty"`
	LLMExplanation  string           `json:"llmExplanation"`
	AnalyzedAt      time.Time        `json:"analyzedAt"`
}
