// (c) 2025-2026, ConVM, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package contractingvm

import (
	"errors"

	"github.com/ava-labs/avalanchego/cache"
	"github.com/ava-labs/avalanchego/database"
	"github.com/ava-labs/avalanchego/ids"
)

const (
	receiptCacheSize = 2048
)

var (
	errReceiptWrongVersion = errors.New("wrong version")

	_ ReceiptState = (*receiptState)(nil)
)

// ReceiptState persists transaction receipts by transaction ID.
type ReceiptState interface {
	GetReceipt(txID ids.ID) (*Receipt, error)
	PutReceipt(receipt *Receipt) error
}

type receiptState struct {
	receiptCache cache.Cacher[ids.ID, *Receipt]
	receiptDB    database.Database
}

func NewReceiptState(db database.Database) ReceiptState {
	return &receiptState{
		receiptCache: &cache.LRU[ids.ID, *Receipt]{Size: receiptCacheSize},
		receiptDB:    db,
	}
}

func (s *receiptState) GetReceipt(txID ids.ID) (*Receipt, error) {
	if receipt, cached := s.receiptCache.Get(txID); cached {
		return receipt, nil
	}

	bytes, err := s.receiptDB.Get(txID[:])
	if err != nil {
		return nil, err
	}

	receipt := Receipt{}
	parsedVersion, err := Codec.Unmarshal(bytes, &receipt)
	if err != nil {
		return nil, err
	}
	if parsedVersion != CodecVersion {
		return nil, errReceiptWrongVersion
	}

	s.receiptCache.Put(txID, &receipt)
	return &receipt, nil
}

func (s *receiptState) PutReceipt(receipt *Receipt) error {
	bytes, err := Codec.Marshal(CodecVersion, receipt)
	if err != nil {
		return err
	}

	s.receiptCache.Put(receipt.TxID, receipt)
	return s.receiptDB.Put(receipt.TxID[:], bytes)
}
