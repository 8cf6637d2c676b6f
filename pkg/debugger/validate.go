package debugger

import (
	"regexp"
	"unicode/utf8"
)

const (
	MinQuestionLength = 3
	MaxQuestionLength = 500
)

var (
	txHashPattern    = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
	networkIDPattern = regexp.MustCompile(`^\d+$`)
)

// ValidateTx checks a transaction hash and network id before any external
// call is made.
func ValidateTx(txHash, networkID string) error {
	if !txHashPattern.MatchString(txHash) {
		return invalid("invalid transaction hash (must be 0x + 64 hex chars)")
	}

	if !networkIDPattern.MatchString(networkID) {
		return invalid("networkId must be a numeric string")
	}

	return nil
}

func ValidateQuestion(question string) error {
	if n := utf8.RuneCountInString(question); n < MinQuestionLength || n > MaxQuestionLength {
		return invalid("question must be between %d and %d characters", MinQuestionLength, MaxQuestionLength)
	}

	return nil
}
