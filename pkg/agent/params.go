package agent

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// parseArguments decodes the raw JSON object the engine sent for a call.
func parseArguments(raw string) (map[string]any, error) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, nil
	}

	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return nil, fmt.Errorf("invalid tool arguments: %w", err)
	}

	if args == nil {
		args = map[string]any{}
	}

	return args, nil
}

// stringParam accepts strings and numbers, since engines are loose about
// quoting ids.
func stringParam(params map[string]any, key, defaultVal string) string {
	switch v := params[key].(type) {
	case string:
		if v == "" {
			return defaultVal
		}

		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return defaultVal
	}
}

func floatParam(params map[string]any, key string, defaultVal float64) float64 {
	switch v := params[key].(type) {
	case float64:
		return v
	case string:
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}

	return defaultVal
}

func uintParam(params map[string]any, key string, defaultVal uint64) uint64 {
	switch v := params[key].(type) {
	case float64:
		if v >= 0 {
			return uint64(v)
		}
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}

	return defaultVal
}

func stringsParam(params map[string]any, key string) []string {
	items, ok := params[key].([]any)
	if !ok {
		return []string{}
	}

	out := make([]string, 0, len(items))

	for _, item := range items {
		switch v := item.(type) {
		case string:
			out = append(out, v)
		case float64:
			out = append(out, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			out = append(out, fmt.Sprint(v))
		}
	}

	return out
}
