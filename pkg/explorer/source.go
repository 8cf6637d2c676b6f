package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

type SourceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type ContractSource struct {
	ContractName    string       `json:"contractName"`
	CompilerVersion string       `json:"compilerVersion"`
	Files           []SourceFile `json:"files"`
}

type sourceEntry struct {
	SourceCode      string `json:"SourceCode"`
	ContractName    string `json:"ContractName"`
	CompilerVersion string `json:"CompilerVersion"`
}

type standardInput struct {
	Sources map[string]struct {
		Content string `json:"content"`
	} `json:"sources"`
}

// ContractSource fetches the verified source of address, split into files.
func (c *Client) ContractSource(ctx context.Context, address, networkID string) (*ContractSource, error) {
	rsp, err := c.call(ctx, "getsourcecode", address, networkID)
	if err != nil {
		return nil, err
	}

	var entries []sourceEntry
	if rsp.Status == "1" {
		if err := json.Unmarshal(rsp.Result, &entries); err != nil {
			return nil, fmt.Errorf("failed to decode source for %s: %w", address, err)
		}
	}

	if len(entries) == 0 {
		return nil, &UnavailableError{Message: fmt.Sprintf("Source not available for %s: %s (%s)", address, rsp.Message, rsp.resultText())}
	}

	entry := entries[0]
	if entry.SourceCode == "" {
		return nil, &UnavailableError{Message: fmt.Sprintf("No source code found for %s (contract may not be verified).", address)}
	}

	name := entry.ContractName
	if name == "" {
		name = "Unknown"
	}

	return &ContractSource{
		ContractName:    name,
		CompilerVersion: entry.CompilerVersion,
		Files:           ParseSourceFiles(name, entry.SourceCode),
	}, nil
}

// ParseSourceFiles splits an explorer SourceCode field. The explorer wraps
// standard-input JSON in an extra pair of braces for multi-file contracts;
// plain standard-input JSON and single flat files are also accepted. Files
// are sorted by name.
func ParseSourceFiles(contractName, raw string) []SourceFile {
	single := []SourceFile{{Name: contractName + ".sol", Content: raw}}

	var body string

	switch {
	case strings.HasPrefix(raw, "{{") && strings.HasSuffix(raw, "}}"):
		body = raw[1 : len(raw)-1]
	case strings.HasPrefix(raw, "{"):
		body = raw
	default:
		return single
	}

	var input standardInput
	if err := json.Unmarshal([]byte(body), &input); err != nil || len(input.Sources) == 0 {
		return single
	}

	files := make([]SourceFile, 0, len(input.Sources))
	for name, file := range input.Sources {
		files = append(files, SourceFile{Name: name, Content: file.Content})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	return files
}

// FilesDefining returns the files that contain `function <name>(`.
func (s *ContractSource) FilesDefining(functionName string) []SourceFile {
	pattern := regexp.MustCompile(`\bfunction\s+` + regexp.QuoteMeta(functionName) + `\s*\(`)

	var out []SourceFile

	for _, f := range s.Files {
		if pattern.MatchString(f.Content) {
			out = append(out, f)
		}
	}

	return out
}
