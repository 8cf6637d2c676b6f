package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type ABIParam struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type ABIEntry struct {
	Type    string     `json:"type"`
	Name    string     `json:"name"`
	Inputs  []ABIParam `json:"inputs"`
	Outputs []ABIParam `json:"outputs"`
}

// ContractABI fetches the verified ABI of address.
func (c *Client) ContractABI(ctx context.Context, address, networkID string) ([]ABIEntry, error) {
	rsp, err := c.call(ctx, "getabi", address, networkID)
	if err != nil {
		return nil, err
	}

	if rsp.Status != "1" {
		detail := rsp.Message
		if detail == "" {
			detail = rsp.resultText()
		}

		return nil, &UnavailableError{Message: fmt.Sprintf("ABI not available for %s: %s", address, detail)}
	}

	var entries []ABIEntry
	if err := json.Unmarshal([]byte(rsp.resultText()), &entries); err != nil {
		return nil, fmt.Errorf("failed to decode ABI for %s: %w", address, err)
	}

	return entries, nil
}

// SummarizeABI lists the functions and events of an ABI, one per line.
func SummarizeABI(address, networkID string, entries []ABIEntry) string {
	var functions, events []string

	for _, entry := range entries {
		switch entry.Type {
		case "function":
			line := fmt.Sprintf("  %s(%s)", entry.Name, namedParams(entry.Inputs))

			if len(entry.Outputs) > 0 {
				outs := make([]string, 0, len(entry.Outputs))
				for _, o := range entry.Outputs {
					outs = append(outs, o.Type)
				}

				line += " → (" + strings.Join(outs, ", ") + ")"
			}

			functions = append(functions, line)
		case "event":
			events = append(events, fmt.Sprintf("  event %s(%s)", entry.Name, namedParams(entry.Inputs)))
		}
	}

	sections := []string{fmt.Sprintf("ABI for %s (network %s):", address, networkID)}

	if len(functions) > 0 {
		sections = append(sections, "Functions:\n"+strings.Join(functions, "\n"))
	}

	if len(events) > 0 {
		sections = append(sections, "Events:\n"+strings.Join(events, "\n"))
	}

	if len(functions) == 0 && len(events) == 0 {
		sections = append(sections, "No public functions or events found.")
	}

	return strings.Join(sections, "\n\n")
}

func namedParams(params []ABIParam) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Type+" "+p.Name)
	}

	return strings.Join(parts, ", ")
}
