package icp

import (
	"fmt"

	"github.com/aviate-labs/agent-go/candid/idl"
)

// EncodeTextArg encodes a single text value as the candid argument tuple (text)
func EncodeTextArg(value string) ([]byte, error) {
	raw, err := idl.Marshal([]any{value})
	if err != nil {
		return nil, fmt.Errorf("failed to encode candid argument: %w", err)
	}
	return raw, nil
}
