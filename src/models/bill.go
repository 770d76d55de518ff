package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BillStatus string

const (
	BillDraft     BillStatus = "DRAFT"
	BillPending   BillStatus = "PENDING"
	BillPaid      BillStatus = "PAID"
	BillCancelled BillStatus = "CANCELLED"
)

func (s BillStatus) Valid() bool {
	switch s {
	case BillDraft, BillPending, BillPaid, BillCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed.
func (s BillStatus) Terminal() bool {
	return s == BillPaid || s == BillCancelled
}

// Accepted values for the descriptive bill fields.
var (
	CardTypes         = []string{"Personal Card", "Family Card", "Premium Card"}
	ConsultationTypes = []string{"House Doctor", "Cardiologist", "Neurologist", "Dermatologist"}
	AdmissionTypes    = []string{"VIP", "Private", "Shared Room", "Nursery Care"}
	DosageFrequencies = []string{"1 Daily", "BD", "TDS", "QDS", "AD", "Weekly"}
	DosageDurations   = []string{"Daily", "Weekly", "Monthly"}
)

type Consultation struct {
	Type         string          `gorm:"type:varchar(30)" json:"type,omitempty"`
	Price        decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
	IsEmergency  bool            `json:"is_emergency"`
	EmergencyFee decimal.Decimal `gorm:"type:numeric(12,2)" json:"emergency_fee"`
}

func (c Consultation) Present() bool {
	return c.Type != "" || c.Price.IsPositive()
}

func (c Consultation) Subtotal() decimal.Decimal {
	if !c.Present() {
		return decimal.Zero
	}
	if c.IsEmergency {
		return c.Price.Add(c.EmergencyFee)
	}
	return c.Price
}

type Admission struct {
	Type  string          `gorm:"type:varchar(30)" json:"type,omitempty"`
	Price decimal.Decimal `gorm:"type:numeric(12,2)" json:"price"`
}

func (a Admission) Present() bool {
	return a.Type != "" || a.Price.IsPositive()
}

// ============ BILL ============
type Bill struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BillNumber string    `gorm:"type:varchar(30);not null;uniqueIndex" json:"bill_number"`

	PatientName string `gorm:"type:varchar(200);not null;index" json:"patient_name"`
	PatientID   string `gorm:"type:varchar(100);index" json:"patient_id,omitempty"`

	// Sections
	CardType     string              `gorm:"type:varchar(30)" json:"card_type,omitempty"`
	Consultation Consultation        `gorm:"embedded;embeddedPrefix:consultation_" json:"consultation"`
	Drugs        []BillDrugLine      `gorm:"foreignKey:BillID" json:"drugs"`
	Procedures   []BillProcedureLine `gorm:"foreignKey:BillID" json:"procedures"`
	Admission    Admission           `gorm:"embedded;embeddedPrefix:admission_" json:"admission_fee"`

	// Derived
	SubtotalCard         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_card"`
	SubtotalConsultation decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_consultation"`
	SubtotalDrugs        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_drugs"`
	SubtotalProcedures   decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_procedures"`
	SubtotalAdmission    decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal_admission"`
	TotalAmount          decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_amount"`

	Status      BillStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`

	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	CreatedBy string    `gorm:"type:varchar(100);not null" json:"created_by"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Bill) TableName() string {
	return "bills"
}

func (b *Bill) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BeforeSave keeps the stored subtotals derived from the loaded lines.
func (b *Bill) BeforeSave(tx *gorm.DB) error {
	b.Recalculate()
	return nil
}

// Recalculate derives every subtotal and the total from section contents.
func (b *Bill) Recalculate() {
	b.SubtotalCard = decimal.Zero
	b.SubtotalConsultation = b.Consultation.Subtotal()

	drugs := decimal.Zero
	for i := range b.Drugs {
		b.Drugs[i].Subtotal = b.Drugs[i].LineTotal()
		drugs = drugs.Add(b.Drugs[i].Subtotal)
	}
	b.SubtotalDrugs = drugs

	procedures := decimal.Zero
	for _, p := range b.Procedures {
		procedures = procedures.Add(p.Price)
	}
	b.SubtotalProcedures = procedures

	b.SubtotalAdmission = decimal.Zero
	if b.Admission.Present() {
		b.SubtotalAdmission = b.Admission.Price
	}

	b.TotalAmount = b.SubtotalConsultation.
		Add(b.SubtotalDrugs).
		Add(b.SubtotalProcedures).
		Add(b.SubtotalAdmission)
}

// BillDrugLine is a dispensed drug. DrugID may be nil for free-text drugs.
type BillDrugLine struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BillID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Position int       `gorm:"not null" json:"position"`

	DrugID        *uuid.UUID      `gorm:"type:uuid;index" json:"drug_id,omitempty"`
	DrugName      string          `gorm:"type:varchar(200);not null" json:"drug_name"`
	NumberOfUnits int             `gorm:"not null" json:"number_of_units"`
	NumberOfDays  int             `gorm:"not null" json:"number_of_days"`
	TimesDaily    string          `gorm:"type:varchar(20)" json:"times_daily,omitempty"`
	Duration      string          `gorm:"type:varchar(20)" json:"duration,omitempty"`
	PricePerUnit  decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_per_unit"`
	Subtotal      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"subtotal"`
}

func (BillDrugLine) TableName() string {
	return "bill_drug_lines"
}

func (l *BillDrugLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// DispensedUnits is the quantity debited from stock when the bill is paid.
func (l BillDrugLine) DispensedUnits() int {
	return l.NumberOfUnits * l.NumberOfDays
}

func (l BillDrugLine) LineTotal() decimal.Decimal {
	return l.PricePerUnit.Mul(decimal.NewFromInt(int64(l.DispensedUnits())))
}

type BillProcedureLine struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BillID   uuid.UUID `gorm:"type:uuid;not null;index" json:"-"`
	Position int       `gorm:"not null" json:"position"`

	ProcedureID   *uuid.UUID      `gorm:"type:uuid" json:"procedure_id,omitempty"`
	ProcedureName string          `gorm:"type:varchar(200);not null" json:"procedure_name"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
}

func (BillProcedureLine) TableName() string {
	return "bill_procedure_lines"
}

func (l *BillProcedureLine) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
