package disburse

import (
	"encoding/json"
	"errors"
	"fmt"

	"AwabarTickets/internal/prex"
)

// ErrNoteDecode covers every way the payment note can fail to yield a
// recipient. Decoding happens before any transfer, so a decode failure can
// never leave a partial disbursement behind.
var ErrNoteDecode = errors.New("payment note decode failed")

// ParseRecipient extracts the recipient address from the payment note
// attached at checkout time. The note must be a JSON object with a
// well-formed ethAddress field; anything else aborts the whole order.
func ParseRecipient(note string) (string, error) {
	var meta struct {
		EthAddress string `json:"ethAddress"`
	}
	if err := json.Unmarshal([]byte(note), &meta); err != nil {
		return "", fmt.Errorf("%w: note is not json: %v", ErrNoteDecode, err)
	}
	if meta.EthAddress == "" {
		return "", fmt.Errorf("%w: note has no ethAddress", ErrNoteDecode)
	}
	if !prex.IsHexAddress(meta.EthAddress) {
		return "", fmt.Errorf("%w: ethAddress %q is not a hex address", ErrNoteDecode, meta.EthAddress)
	}
	return meta.EthAddress, nil
}
