package requests

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"clinic-ops/src/services"
)

type ConsultationRequest struct {
	Type         *string          `json:"type,omitempty"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	IsEmergency  *bool            `json:"is_emergency,omitempty"`
	EmergencyFee *decimal.Decimal `json:"emergency_fee,omitempty"`
}

type AdmissionRequest struct {
	Type  *string          `json:"type,omitempty"`
	Price *decimal.Decimal `json:"price,omitempty"`
}

type DrugLineRequest struct {
	DrugID        *uuid.UUID       `json:"drug_id,omitempty"`
	DrugName      string           `json:"drug_name" binding:"max=200"`
	NumberOfUnits int              `json:"number_of_units" binding:"required,min=1"`
	NumberOfDays  int              `json:"number_of_days" binding:"required,min=1"`
	TimesDaily    string           `json:"times_daily" binding:"omitempty,oneof='1 Daily' BD TDS QDS AD Weekly"`
	Duration      string           `json:"duration" binding:"omitempty,oneof=Daily Weekly Monthly"`
	PricePerUnit  *decimal.Decimal `json:"price_per_unit,omitempty"`
}

type ProcedureLineRequest struct {
	ProcedureID   *uuid.UUID       `json:"procedure_id,omitempty"`
	ProcedureName string           `json:"procedure_name" binding:"max=200"`
	Price         *decimal.Decimal `json:"price,omitempty"`
}

// BillRequest is used for both create and patch. Absent fields are left
// untouched; drugs and procedures replace the stored lists when present.
type BillRequest struct {
	PatientName  *string                 `json:"patient_name,omitempty" binding:"omitempty,max=200"`
	PatientID    *string                 `json:"patient_id,omitempty" binding:"omitempty,max=100"`
	CardType     *string                 `json:"card_type,omitempty"`
	Consultation *ConsultationRequest    `json:"consultation,omitempty"`
	Drugs        *[]DrugLineRequest      `json:"drugs,omitempty" binding:"omitempty,dive"`
	Procedures   *[]ProcedureLineRequest `json:"procedures,omitempty" binding:"omitempty,dive"`
	Admission    *AdmissionRequest       `json:"admission_fee,omitempty"`
	Notes        *string                 `json:"notes,omitempty"`
}

func (r BillRequest) ToPatch() services.BillPatch {
	patch := services.BillPatch{
		PatientName: r.PatientName,
		PatientID:   r.PatientID,
		CardType:    r.CardType,
		Notes:       r.Notes,
	}
	if c := r.Consultation; c != nil {
		patch.Consultation = &services.ConsultationInput{
			Type:         c.Type,
			Price:        c.Price,
			IsEmergency:  c.IsEmergency,
			EmergencyFee: c.EmergencyFee,
		}
	}
	if a := r.Admission; a != nil {
		patch.Admission = &services.AdmissionInput{Type: a.Type, Price: a.Price}
	}
	if r.Drugs != nil {
		drugs := make([]services.DrugLineInput, len(*r.Drugs))
		for i, d := range *r.Drugs {
			drugs[i] = services.DrugLineInput{
				DrugID:        d.DrugID,
				DrugName:      d.DrugName,
				NumberOfUnits: d.NumberOfUnits,
				NumberOfDays:  d.NumberOfDays,
				TimesDaily:    d.TimesDaily,
				Duration:      d.Duration,
				PricePerUnit:  d.PricePerUnit,
			}
		}
		patch.Drugs = &drugs
	}
	if r.Procedures != nil {
		procedures := make([]services.ProcedureLineInput, len(*r.Procedures))
		for i, p := range *r.Procedures {
			procedures[i] = services.ProcedureLineInput{
				ProcedureID:   p.ProcedureID,
				ProcedureName: p.ProcedureName,
				Price:         p.Price,
			}
		}
		patch.Procedures = &procedures
	}
	return patch
}

type BillStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=DRAFT PENDING PAID CANCELLED"`
}

type ProcedureRequest struct {
	Name          string          `json:"name" binding:"required,max=200"`
	StandardPrice decimal.Decimal `json:"standard_price"`
	Category      string          `json:"category" binding:"max=100"`
	Description   string          `json:"description"`
}

func (r ProcedureRequest) ToInput() services.ProcedureInput {
	return services.ProcedureInput{
		Name:          r.Name,
		StandardPrice: r.StandardPrice,
		Category:      r.Category,
		Description:   r.Description,
	}
}
