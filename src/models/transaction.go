package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type TransactionStatus string

const (
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionCancelled TransactionStatus = "CANCELLED"
)

type PaymentMethod string

const (
	PaymentCash      PaymentMethod = "cash"
	PaymentCard      PaymentMethod = "card"
	PaymentInsurance PaymentMethod = "insurance"
	PaymentOther     PaymentMethod = "other"
)

func (p PaymentMethod) Valid() bool {
	switch p {
	case PaymentCash, PaymentCard, PaymentInsurance, PaymentOther:
		return true
	}
	return false
}

// Transaction is a point-of-sale checkout. Line items are written once and
// never updated; cancellation only touches the status and cancel fields.
type Transaction struct {
	ID            uuid.UUID         `gorm:"type:uuid;primaryKey" json:"id"`
	TransactionID string            `gorm:"type:varchar(40);not null;uniqueIndex" json:"transaction_id"`
	Status        TransactionStatus `gorm:"type:varchar(20);not null;index" json:"status"`

	LineItems   []TransactionLineItem `gorm:"foreignKey:TxnID" json:"line_items"`
	TotalAmount decimal.Decimal       `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	PaymentMethod      PaymentMethod `gorm:"type:varchar(20);not null" json:"payment_method"`
	PatientName        string        `gorm:"type:varchar(200);index" json:"patient_name,omitempty"`
	PatientID          string        `gorm:"type:varchar(100);index" json:"patient_id,omitempty"`
	PrescriptionNumber string        `gorm:"type:varchar(100)" json:"prescription_number,omitempty"`
	Notes              string        `gorm:"type:text" json:"notes,omitempty"`

	// Cancellation data
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason *string    `gorm:"type:text" json:"cancellation_reason,omitempty"`
	CancelledBy        *string    `gorm:"type:varchar(100)" json:"cancelled_by,omitempty"`

	ReceiptPrinted bool       `gorm:"not null" json:"receipt_printed"`
	PrintedAt      *time.Time `json:"printed_at,omitempty"`

	CreatedBy string    `gorm:"type:varchar(100);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Transaction) TableName() string {
	return "sales_transactions"
}

func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	return nil
}

// LineTotal sums the line subtotals.
func (t *Transaction) LineTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range t.LineItems {
		total = total.Add(line.Subtotal)
	}
	return total
}

// TransactionLineItem holds the item snapshot taken at checkout.
type TransactionLineItem struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	TxnID    uuid.UUID `gorm:"column:txn_id;type:uuid;not null;index" json:"-"`
	Position int       `gorm:"not null" json:"position"`

	InventoryItemID uuid.UUID `gorm:"type:uuid;not null;index" json:"inventory_item_id"`

	// Snapshot
	ItemName    string  `gorm:"type:varchar(200);not null" json:"item_name"`
	SKU         string  `gorm:"column:sku;type:varchar(100);not null" json:"sku"`
	Barcode     *string `gorm:"type:varchar(50)" json:"barcode,omitempty"`
	BatchNumber string  `gorm:"type:varchar(100)" json:"batch_number,omitempty"`

	Quantity  int             `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	Subtotal  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

func (TransactionLineItem) TableName() string {
	return "transaction_line_items"
}

func (l *TransactionLineItem) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
