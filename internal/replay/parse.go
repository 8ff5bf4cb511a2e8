package replay

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// ParsePools converts pool address strings into common.Address, skipping
// blanks.
func ParsePools(inputs []string) ([]common.Address, error) {
	pools := make([]common.Address, 0, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if !common.IsHexAddress(input) {
			return nil, fmt.Errorf("invalid pool address: %s", input)
		}
		pools = append(pools, common.HexToAddress(input))
	}
	return pools, nil
}
