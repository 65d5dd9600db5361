package transaction

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

// evmEventMarker selects events emitted by the EVM bridge contract. The
// contract address prefix varies by network, so this is a substring match.
const evmEventMarker = "EVM."

// evmTxHash derives the inner EVM transaction hash from an EVM event. It
// reports false for non-EVM events and for events without a usable byte
// array in data.hash.
func evmTxHash(ev Event) (string, bool) {
	if !strings.Contains(ev.Type, evmEventMarker) || len(ev.Data) == 0 {
		return "", false
	}

	var data struct {
		Hash []json.RawMessage `json:"hash"`
	}
	if err := json.Unmarshal(ev.Data, &data); err != nil || len(data.Hash) == 0 {
		return "", false
	}

	buf := make([]byte, len(data.Hash))
	for i, raw := range data.Hash {
		b, ok := parseByte(raw)
		if !ok {
			return "", false
		}
		buf[i] = b
	}
	return hexutil.Encode(buf), true
}

// parseByte accepts a JSON number or a numeric string in 0..255. Cadence
// UInt8 values arrive as either depending on the decoder.
func parseByte(raw json.RawMessage) (byte, bool) {
	s := strings.TrimSpace(string(raw))
	if unq, err := strconv.Unquote(s); err == nil {
		s = unq
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, false
	}
	return byte(n), true
}
