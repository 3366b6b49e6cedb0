package events

import (
	"encoding/json"
	"fmt"

	"github.com/levisbarua/pesaflow-1/internal/model"
)

// Encode renders the snapshot carried by outbox rows and broker messages.
func Encode(txn model.Transaction) ([]byte, error) {
	body, err := json.Marshal(txn)
	if err != nil {
		return nil, fmt.Errorf("encode transaction %s: %w", txn.ID, err)
	}
	return body, nil
}

func Decode(body []byte) (model.Transaction, error) {
	var txn model.Transaction
	if err := json.Unmarshal(body, &txn); err != nil {
		return model.Transaction{}, fmt.Errorf("decode transaction event: %w", err)
	}
	if txn.ID == "" {
		return model.Transaction{}, fmt.Errorf("decode transaction event: missing id")
	}
	return txn, nil
}
