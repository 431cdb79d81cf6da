package models

import (
	"strconv"
	"time"
)

// STKCallbackRequest is the outer envelope Safaricom posts to the callback
// endpoint. Absence of Body.stkCallback marks the request as malformed.
type STKCallbackRequest struct {
	Body STKCallbackBody `json:"Body"`
}

// STKCallbackBody wraps the stkCallback element.
type STKCallbackBody struct {
	STKCallback *STKCallback `json:"stkCallback"`
}

// STKCallback is one inbound payment result. ResultCode 0 means the payer
// completed the push; any nonzero code is a failure or cancellation.
type STKCallback struct {
	MerchantRequestID string            `json:"MerchantRequestID"`
	CheckoutRequestID string            `json:"CheckoutRequestID"`
	ResultCode        int               `json:"ResultCode"`
	ResultDesc        string            `json:"ResultDesc"`
	CallbackMetadata  *CallbackMetadata `json:"CallbackMetadata,omitempty"`
}

// CallbackMetadata is the list of name/value items attached to a
// successful payment.
type CallbackMetadata struct {
	Item []MetadataItem `json:"Item"`
}

// MetadataItem is a single name/value pair. Value may arrive as a JSON
// number or string depending on the field, so it stays untyped here and is
// coerced during extraction.
type MetadataItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// PaymentDetails is the validated, typed view of a successful callback's
// metadata. Fields missing from the payload are left at their zero value.
type PaymentDetails struct {
	Receipt         string
	Amount          float64
	PhoneNumber     string
	TransactionDate time.Time
}

// PaymentDetails extracts the known metadata items from the callback,
// tolerating unknown extra items and either numeric or string values.
func (c *STKCallback) PaymentDetails() PaymentDetails {
	var d PaymentDetails
	if c.CallbackMetadata == nil {
		return d
	}
	for _, item := range c.CallbackMetadata.Item {
		switch item.Name {
		case "MpesaReceiptNumber":
			d.Receipt = asString(item.Value)
		case "Amount":
			d.Amount = asFloat(item.Value)
		case "PhoneNumber":
			d.PhoneNumber = asString(item.Value)
		case "TransactionDate":
			d.TransactionDate = asTransactionDate(item.Value)
		}
	}
	return d
}

// CallbackResponse is the acknowledgment returned to the provider.
// ResultCode 0 means accepted, do not redeliver; 1 permits redelivery.
type CallbackResponse struct {
	ResultCode int    `json:"ResultCode"`
	ResultDesc string `json:"ResultDesc"`
}

func asString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// Phone numbers and dates arrive as JSON numbers.
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

func asFloat(v interface{}) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, err := strconv.ParseFloat(t, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// asTransactionDate parses M-Pesa's YYYYMMDDHHMMSS settlement timestamp.
func asTransactionDate(v interface{}) time.Time {
	s := asString(v)
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse("20060102150405", s)
	if err != nil {
		return time.Time{}
	}
	return t
}
