// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FraudGuard Contributors

// Package detect validates simulated payment transactions and forwards them
// to the external fraud scoring service.
package detect

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"github.com/shopspring/decimal"
)

// Error codes returned by this package.
const (
	CodeValidation    = "DETECT_VALIDATION"
	CodeMLUnavailable = "DETECT_ML_UNAVAILABLE"
	CodeAnalyzeFailed = "DETECT_ANALYZE_FAILED"
)

// Client-facing messages.
const (
	MsgMissingFields  = "Missing required fields: amount, senderUpiId, receiverUpiId"
	MsgInvalidAmount  = "Invalid amount"
	MsgInvalidBody    = "Request body must be a JSON object"
	MsgMLUnavailable  = "ML service unavailable"
	MsgAnalyzeFailed  = "Failed to analyze transaction"
	MsgStartMLService = "Please ensure the ML scoring service is running"
)

// FeatureCount is the number of anonymized V features the model expects.
const FeatureCount = 28

// Transaction is a validated scoring request.
type Transaction struct {
	Amount        decimal.Decimal
	SenderUPIID   string
	ReceiverUPIID string
	// Features holds V1..V28; absent features are zero.
	Features [FeatureCount]float64
	// Details is the request body as received, echoed in the result.
	Details map[string]any
}

type transactionBody struct {
	Amount        json.RawMessage    `json:"amount"`
	SenderUPIID   any                `json:"senderUpiId"`
	ReceiverUPIID any                `json:"receiverUpiId"`
	Features      map[string]float64 `json:"features"`
}

// ParseTransaction decodes and validates a JSON request body. A numeric zero
// amount and empty or null values count as missing.
func ParseTransaction(body []byte) (*Transaction, error) {
	errb := oops.Code(CodeValidation)

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var details map[string]any
	if err := dec.Decode(&details); err != nil || details == nil {
		return nil, errb.Errorf("%s", MsgInvalidBody)
	}

	var raw transactionBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, errb.With("cause", err.Error()).Errorf("%s", MsgInvalidBody)
	}

	sender, receiver := fieldString(raw.SenderUPIID), fieldString(raw.ReceiverUPIID)
	amountText, present, numeric := amountString(raw.Amount)
	if !present || sender == "" || receiver == "" {
		return nil, errb.Errorf("%s", MsgMissingFields)
	}

	amount, err := decimal.NewFromString(amountText)
	if err != nil {
		return nil, errb.With("amount", amountText).Errorf("%s", MsgInvalidAmount)
	}
	if amount.IsZero() && numeric {
		return nil, errb.Errorf("%s", MsgMissingFields)
	}
	if !amount.IsPositive() {
		return nil, errb.With("amount", amountText).Errorf("%s", MsgInvalidAmount)
	}

	tx := &Transaction{
		Amount:        amount,
		SenderUPIID:   sender,
		ReceiverUPIID: receiver,
		Details:       details,
	}
	for i := range FeatureCount {
		tx.Features[i] = raw.Features[fmt.Sprintf("V%d", i+1)]
	}
	return tx, nil
}

// amountString returns the textual amount, whether it was supplied and
// whether it was a JSON number. Only an empty string counts as a missing
// string amount; blank strings are supplied but unparseable.
func amountString(raw json.RawMessage) (text string, present, numeric bool) {
	text = strings.TrimSpace(string(raw))
	if text == "" || text == "null" || text == "false" {
		return "", false, false
	}
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return text, true, false
		}
		if s == "" {
			return "", false, false
		}
		return strings.TrimSpace(s), true, false
	}
	return text, true, true
}

// fieldString renders an identifier field; non-empty numbers are accepted.
func fieldString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case float64:
		if val == 0 {
			return ""
		}
		return fmt.Sprint(val)
	default:
		return ""
	}
}
