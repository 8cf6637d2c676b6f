// Package normalizer converts a raw simulation call trace into an
// arena-indexed analysis.CallTree.
package normalizer

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/4rdii/transaction-debugger-agent/pkg/analysis"
	"github.com/4rdii/transaction-debugger-agent/pkg/registry"
	"github.com/4rdii/transaction-debugger-agent/pkg/simulation"
)

const (
	selectorLength  = 10
	defaultValueWei = "0x0"
)

type Normalizer struct {
	registry *registry.Registry
}

func New(reg *registry.Registry) *Normalizer {
	return &Normalizer{registry: reg}
}

type frame struct {
	raw    *simulation.CallTrace
	parent *analysis.CallNode
	depth  int
}

// Normalize walks the trace in pre-order. Each node id is its arena index.
// The walk uses an explicit stack so arbitrarily deep traces are safe.
func (n *Normalizer) Normalize(raw *simulation.CallTrace) *analysis.CallTree {
	if raw == nil {
		return analysis.NewCallTree(nil)
	}

	nodes := make([]*analysis.CallNode, 0, 64)
	stack := []frame{{raw: raw}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := n.node(f.raw, analysis.CallID(len(nodes)), f.depth)
		nodes = append(nodes, node)

		if f.parent != nil {
			f.parent.Children = append(f.parent.Children, node)
		}

		for i := len(f.raw.Calls) - 1; i >= 0; i-- {
			if f.raw.Calls[i] == nil {
				continue
			}

			stack = append(stack, frame{raw: f.raw.Calls[i], parent: node, depth: f.depth + 1})
		}
	}

	return analysis.NewCallTree(nodes)
}

func (n *Normalizer) node(raw *simulation.CallTrace, id analysis.CallID, depth int) *analysis.CallNode {
	selector := Selector(raw.Input)

	node := &analysis.CallNode{
		ID:               id,
		Depth:            depth,
		CallType:         callType(raw.Type),
		Caller:           strings.ToLower(raw.From),
		Callee:           strings.ToLower(raw.To),
		ContractName:     raw.ContractName,
		FunctionName:     raw.FunctionName,
		FunctionSelector: selector,
		DecodedInputs:    params(raw.DecodedInput),
		DecodedOutputs:   params(raw.DecodedOutput),
		GasUsed:          raw.GasUsed,
		ValueWei:         defaultValueWei,
		Success:          raw.Error == "",
		Children:         []*analysis.CallNode{},
	}

	if raw.Value != nil && *raw.Value != "" {
		node.ValueWei = *raw.Value
	}

	if !node.Success {
		node.RevertReason = raw.ErrorReason
		if node.RevertReason == "" {
			node.RevertReason = raw.Error
		}
	}

	if entry, ok := n.registry.Lookup(selector); ok && selector != "" {
		node.Protocol = entry.Protocol
		node.Action = entry.Action

		if node.FunctionName == "" {
			node.FunctionName = entry.FunctionSignature
		}
	}

	return node
}

// Selector returns the lower-cased 4-byte selector of calldata, or "" when the
// input is too short.
func Selector(input string) string {
	if len(input) < selectorLength {
		return ""
	}

	return strings.ToLower(input[:selectorLength])
}

func callType(t string) analysis.CallType {
	switch ct := analysis.CallType(strings.ToUpper(t)); ct {
	case analysis.CallTypeCall, analysis.CallTypeDelegateCall, analysis.CallTypeStaticCall,
		analysis.CallTypeCreate, analysis.CallTypeCreate2:
		return ct
	default:
		return analysis.CallTypeCall
	}
}

func params(in []simulation.SolType) []analysis.Param {
	out := make([]analysis.Param, 0, len(in))

	for _, p := range in {
		out = append(out, analysis.Param{
			Name:  p.Name,
			Type:  p.Type,
			Value: ValueText(p.Value),
		})
	}

	return out
}

// ValueText renders a decoded value as text: strings verbatim, numbers and
// booleans as literals, null as empty, and composites as compact JSON.
// Anything that fails to decode is returned raw.
func ValueText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return string(trimmed)
		}

		return s
	case '{', '[':
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return string(trimmed)
		}

		return buf.String()
	default:
		return string(trimmed)
	}
}
