package downstream

import (
	"fmt"

	"sacco-ledger/internal/pkg/models"

	"github.com/shopspring/decimal"
)

// StkCallbackEnvelope is the body the gateway posts once a collection settles.
type StkCallbackEnvelope struct {
	Body struct {
		StkCallback StkCallback `json:"stkCallback"`
	} `json:"Body"`
}

type StkCallback struct {
	MerchantRequestID string `json:"MerchantRequestID"`
	CheckoutRequestID string `json:"CheckoutRequestID"`
	ResultCode        int    `json:"ResultCode"`
	ResultDesc        string `json:"ResultDesc"`
	CallbackMetadata  struct {
		Item []CallbackItem `json:"Item"`
	} `json:"CallbackMetadata"`
}

type CallbackItem struct {
	Name  string      `json:"Name"`
	Value interface{} `json:"Value,omitempty"`
}

// ToGatewayCallback flattens the envelope. Failed collections carry no metadata.
func (e StkCallbackEnvelope) ToGatewayCallback() models.GatewayCallback {
	cb := e.Body.StkCallback
	out := models.GatewayCallback{
		TrackingID: cb.CheckoutRequestID,
		ResultCode: cb.ResultCode,
		ResultDesc: cb.ResultDesc,
	}
	for _, item := range cb.CallbackMetadata.Item {
		switch item.Name {
		case "Amount":
			if v, ok := item.Value.(float64); ok {
				out.Amount = models.MoneyFromDecimal(decimal.NewFromFloat(v))
			}
		case "MpesaReceiptNumber":
			if item.Value != nil {
				out.ReceiptNumber = fmt.Sprint(item.Value)
			}
		}
	}
	return out
}
