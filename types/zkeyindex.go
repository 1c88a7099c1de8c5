package types

import (
	"errors"
	"fmt"
	"strconv"
)

// GenesisIndexLength is the fixed width used to zero-pad zkeyIndex values.
// The genesis (Powers-of-Tau) zkey is index 0, formatted as "00000"
// (spec.md §8 scenario 1), so the width is 5 digits.
const GenesisIndexLength = 5

var (
	// ErrAmbiguousPendingContribution is returned when more than one
	// ParticipantContribution entry lacks a document reference.
	ErrAmbiguousPendingContribution = errors.New("types: more than one pending contribution entry")
	// ErrNoPendingContribution is returned when no ParticipantContribution
	// entry lacks a document reference.
	ErrNoPendingContribution = errors.New("types: no pending contribution entry")
)

// FormatZkeyIndex zero-pads n to GenesisIndexLength digits (invariant I5,
// property P6). n must be a positive 1-based rank.
func FormatZkeyIndex(n int) string {
	return fmt.Sprintf("%0*d", GenesisIndexLength, n)
}

// ParseZkeyIndex parses a zero-padded zkeyIndex back into its integer rank.
// It rejects the literal "final" token; callers must check for that
// separately (property P6 round-trip only applies to numeric indices).
func ParseZkeyIndex(s string) (int, error) {
	if len(s) != GenesisIndexLength {
		return 0, fmt.Errorf("types: zkeyIndex %q does not have the expected width %d", s, GenesisIndexLength)
	}
	return strconv.Atoi(s)
}
