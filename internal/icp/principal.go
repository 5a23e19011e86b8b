package icp

import (
	"bytes"
	"fmt"

	"github.com/aviate-labs/agent-go/principal"
)

// Principal is an actor or canister identifier
type Principal = principal.Principal

// ManagementCanisterID addresses the platform's management canister ("aaaaa-aa")
var ManagementCanisterID = Principal{Raw: []byte{}}

// ParsePrincipal decodes the dashed textual form and rejects anything but the canonical grouping
func ParsePrincipal(text string) (Principal, error) {
	p, err := principal.Decode(text)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %q: %w", ErrInvalidPrincipal, text, err)
	}
	if p.String() != text {
		return Principal{}, fmt.Errorf("%w: %q is not in canonical form", ErrInvalidPrincipal, text)
	}
	return p, nil
}

// SamePrincipal compares raw identifiers
func SamePrincipal(a, b Principal) bool {
	return bytes.Equal(a.Raw, b.Raw)
}
