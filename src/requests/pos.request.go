package requests

import (
	"github.com/google/uuid"

	"clinic-ops/src/services"
)

type CartItemRequest struct {
	ItemID   uuid.UUID `json:"item_id" binding:"required"`
	Quantity int       `json:"quantity" binding:"required,min=1"`
}

type CartRequest struct {
	Items []CartItemRequest `json:"items" binding:"required,min=1,dive"`
}

func (r CartRequest) Lines() []services.CheckoutLine {
	return toLines(r.Items)
}

type CheckoutRequest struct {
	Items              []CartItemRequest `json:"items" binding:"required,min=1,dive"`
	PaymentMethod      string            `json:"payment_method" binding:"omitempty,oneof=cash card insurance other"`
	PatientName        string            `json:"patient_name" binding:"max=200"`
	PatientID          string            `json:"patient_id" binding:"max=100"`
	PrescriptionNumber string            `json:"prescription_number" binding:"max=100"`
	Notes              string            `json:"notes"`
}

func (r CheckoutRequest) ToInput() services.CheckoutInput {
	return services.CheckoutInput{
		Items:              toLines(r.Items),
		PaymentMethod:      r.PaymentMethod,
		PatientName:        r.PatientName,
		PatientID:          r.PatientID,
		PrescriptionNumber: r.PrescriptionNumber,
		Notes:              r.Notes,
	}
}

type CancelTransactionRequest struct {
	Reason string `json:"reason" binding:"max=500"`
}

func toLines(items []CartItemRequest) []services.CheckoutLine {
	lines := make([]services.CheckoutLine, len(items))
	for i, item := range items {
		lines[i] = services.CheckoutLine{ItemID: item.ItemID, Quantity: item.Quantity}
	}
	return lines
}
