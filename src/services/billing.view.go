package services

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"clinic-ops/src/apperror"
	"clinic-ops/src/models"
)

// Section identifies one part of a bill in display order.
type Section string

const (
	SectionCard         Section = "card"
	SectionConsultation Section = "consultation"
	SectionDrugs        Section = "drugs"
	SectionProcedures   Section = "procedures"
	SectionAdmission    Section = "admission"
)

var sectionOrder = []Section{
	SectionCard,
	SectionConsultation,
	SectionDrugs,
	SectionProcedures,
	SectionAdmission,
}

var sectionTitles = map[Section]string{
	SectionCard:         "Card",
	SectionConsultation: "Consultation",
	SectionDrugs:        "Drugs / Consumables",
	SectionProcedures:   "Procedures",
	SectionAdmission:    "Admission Fee",
}

// ParseSection accepts the section keys plus a few aliases. Empty means the
// whole bill.
func ParseSection(s string) (Section, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "admission", "admission_fee", "all":
		return SectionAdmission, nil
	case "card", "cards":
		return SectionCard, nil
	case "consultation":
		return SectionConsultation, nil
	case "drugs":
		return SectionDrugs, nil
	case "procedures":
		return SectionProcedures, nil
	}
	return "", apperror.Validation("Invalid section %q", s)
}

type ViewItem struct {
	Name    string          `json:"name"`
	Details string          `json:"details,omitempty"`
	Price   decimal.Decimal `json:"price"`
}

type ViewSection struct {
	Key          Section         `json:"key"`
	Title        string          `json:"title"`
	Items        []ViewItem      `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	RunningTotal decimal.Decimal `json:"running_total"`
}

// CumulativeBill is the bill as seen from the first section up to Through.
type CumulativeBill struct {
	BillID      string            `json:"bill_id"`
	BillNumber  string            `json:"bill_number"`
	PatientName string            `json:"patient_name"`
	PatientID   string            `json:"patient_id,omitempty"`
	Status      models.BillStatus `json:"status"`
	Through     Section           `json:"through"`
	Sections    []ViewSection     `json:"sections"`
	Total       decimal.Decimal   `json:"total"`
}

// CumulativeView lists every section up to and including through, each with
// the running total at that point. The bill itself is not modified.
func CumulativeView(bill *models.Bill, through Section) *CumulativeBill {
	view := &CumulativeBill{
		BillID:      bill.ID.String(),
		BillNumber:  bill.BillNumber,
		PatientName: bill.PatientName,
		PatientID:   bill.PatientID,
		Status:      bill.Status,
		Through:     through,
		Sections:    []ViewSection{},
		Total:       decimal.Zero,
	}

	running := decimal.Zero
	for _, key := range sectionOrder {
		section := buildSection(bill, key)
		running = running.Add(section.Subtotal)
		section.RunningTotal = running
		view.Sections = append(view.Sections, section)
		if key == through {
			break
		}
	}
	view.Total = running
	return view
}

func buildSection(bill *models.Bill, key Section) ViewSection {
	section := ViewSection{
		Key:      key,
		Title:    sectionTitles[key],
		Items:    []ViewItem{},
		Subtotal: decimal.Zero,
	}

	switch key {
	case SectionCard:
		if bill.CardType != "" {
			section.Items = append(section.Items, ViewItem{Name: bill.CardType, Price: decimal.Zero})
		}
	case SectionConsultation:
		c := bill.Consultation
		if !c.Present() {
			break
		}
		section.Items = append(section.Items, ViewItem{Name: c.Type, Price: c.Price})
		if c.IsEmergency {
			section.Items = append(section.Items, ViewItem{Name: "Emergency Fee", Price: c.EmergencyFee})
		}
		section.Subtotal = c.Subtotal()
	case SectionDrugs:
		for _, d := range bill.Drugs {
			total := d.LineTotal()
			section.Items = append(section.Items, ViewItem{
				Name:    d.DrugName,
				Details: drugDetails(d),
				Price:   total,
			})
			section.Subtotal = section.Subtotal.Add(total)
		}
	case SectionProcedures:
		for _, p := range bill.Procedures {
			section.Items = append(section.Items, ViewItem{Name: p.ProcedureName, Price: p.Price})
			section.Subtotal = section.Subtotal.Add(p.Price)
		}
	case SectionAdmission:
		if bill.Admission.Present() {
			section.Items = append(section.Items, ViewItem{Name: bill.Admission.Type, Price: bill.Admission.Price})
			section.Subtotal = bill.Admission.Price
		}
	}
	return section
}

func drugDetails(d models.BillDrugLine) string {
	details := fmt.Sprintf("%d units × %d days", d.NumberOfUnits, d.NumberOfDays)
	var extra []string
	if d.TimesDaily != "" {
		extra = append(extra, d.TimesDaily)
	}
	if d.Duration != "" {
		extra = append(extra, d.Duration)
	}
	if len(extra) > 0 {
		details += " (" + strings.Join(extra, ", ") + ")"
	}
	return details
}
