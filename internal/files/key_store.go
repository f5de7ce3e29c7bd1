package files

import (
	"fmt"

	"github.com/harrylevesque/qrgen/internal/crypto"
)

// LoadRecordKey derives the record sealing key from the master key
// (MASTER_KEY_HEX or master.key).
func LoadRecordKey() ([]byte, error) {
	master, err := crypto.ReadMasterKey()
	if err != nil {
		return nil, fmt.Errorf("record store encryption: %w", err)
	}
	return crypto.DeriveRecordKey(master)
}
