package mpesa

import (
	"encoding/json"
	"fmt"
	"strconv"
)

const (
	ResultCodeSuccess       = 0
	ResultCodeCancelledUser = 1032

	MetadataReceiptNumber = "MpesaReceiptNumber"
	MetadataAmount        = "Amount"
	MetadataPhoneNumber   = "PhoneNumber"
)

type CallbackItem struct {
	Name  string `json:"Name"`
	Value any    `json:"Value,omitempty"`
}

type CallbackMetadata struct {
	Item []CallbackItem `json:"Item"`
}

type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        *int              `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

type callbackBody struct {
	STKCallback *STKCallback `json:"stkCallback"`
}

// CallbackEnvelope accepts both the documented {"Body":{"stkCallback":...}} shape and a
// bare {"stkCallback":...} body.
type CallbackEnvelope struct {
	Body        *callbackBody `json:"Body"`
	STKCallback *STKCallback  `json:"stkCallback"`
}

func ParseCallback(raw []byte) (STKCallback, error) {
	var envelope CallbackEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return STKCallback{}, fmt.Errorf("%w: %w", ErrInvalidCallback, err)
	}

	cb := envelope.STKCallback
	if envelope.Body != nil && envelope.Body.STKCallback != nil {
		cb = envelope.Body.STKCallback
	}

	if cb == nil {
		return STKCallback{}, fmt.Errorf("%w: missing stkCallback", ErrInvalidCallback)
	}

	if cb.CheckoutRequestID == "" {
		return STKCallback{}, fmt.Errorf("%w: missing CheckoutRequestID", ErrInvalidCallback)
	}

	if cb.ResultCode == nil {
		return STKCallback{}, fmt.Errorf("%w: missing ResultCode", ErrInvalidCallback)
	}

	return *cb, nil
}

func (c STKCallback) Succeeded() bool {
	return c.ResultCode != nil && *c.ResultCode == ResultCodeSuccess
}

func (c STKCallback) Metadata(name string) (string, bool) {
	if c.CallbackMetadata == nil {
		return "", false
	}

	for _, item := range c.CallbackMetadata.Item {
		if item.Name != name || item.Value == nil {
			continue
		}

		switch v := item.Value.(type) {
		case string:
			return v, true
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64), true
		default:
			return fmt.Sprint(v), true
		}
	}

	return "", false
}

func (c STKCallback) ReceiptNumber() string {
	receipt, _ := c.Metadata(MetadataReceiptNumber)
	return receipt
}
