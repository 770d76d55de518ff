package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"clinic-ops/src/apperror"
	"clinic-ops/src/metrics"
	"clinic-ops/src/models"
	"clinic-ops/src/repositories"
)

// ============ REQUEST STRUCTS ============
type ConsultationInput struct {
	Type         *string
	Price        *decimal.Decimal
	IsEmergency  *bool
	EmergencyFee *decimal.Decimal
}

type AdmissionInput struct {
	Type  *string
	Price *decimal.Decimal
}

// DrugLineInput leaves DrugName and PricePerUnit to be filled from the
// referenced inventory item when they are empty.
type DrugLineInput struct {
	DrugID        *uuid.UUID
	DrugName      string
	NumberOfUnits int
	NumberOfDays  int
	TimesDaily    string
	Duration      string
	PricePerUnit  *decimal.Decimal
}

type ProcedureLineInput struct {
	ProcedureID   *uuid.UUID
	ProcedureName string
	Price         *decimal.Decimal
}

// BillPatch is applied field by field; nil fields are left untouched.
// Drugs and Procedures replace the stored lists when non-nil.
type BillPatch struct {
	PatientName  *string
	PatientID    *string
	CardType     *string
	Consultation *ConsultationInput
	Drugs        *[]DrugLineInput
	Procedures   *[]ProcedureLineInput
	Admission    *AdmissionInput
	Notes        *string
}

// ============ BILLING SERVICE ============
type BillingService struct {
	DB         *gorm.DB
	Repo       *repositories.BillRepository
	Inventory  *repositories.InventoryRepository
	Procedures *repositories.ProcedureRepository
	Log        *zap.Logger
	Observers  []StockObserver
	Now        func() time.Time
}

func (s *BillingService) now() time.Time {
	return clockOrDefault(s.Now)
}

// BillNumberPrefix is the per-day prefix BILL-YYYYMMDD-.
func BillNumberPrefix(day time.Time) string {
	return "BILL-" + day.Format("20060102") + "-"
}

// NextBillNumber returns the number following latest within prefix.
func NextBillNumber(prefix, latest string) (string, error) {
	seq := 1
	if latest != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(latest, prefix))
		if err != nil {
			return "", fmt.Errorf("unexpected bill number %q: %w", latest, err)
		}
		seq = n + 1
	}
	if seq > 9999 {
		return "", apperror.Conflict("Bill numbers for %s are exhausted", strings.TrimSuffix(prefix, "-"))
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// CreateOrUpdate - Create a DRAFT bill when ref is empty, otherwise patch the
// bill identified by ref. Totals are recomputed before every write.
func (s *BillingService) CreateOrUpdate(ctx context.Context, ref string, patch BillPatch, actor string) (*models.Bill, error) {
	drugs, procedures, err := s.resolveLines(ctx, patch)
	if err != nil {
		return nil, err
	}
	if ref == "" {
		return s.create(ctx, patch, drugs, procedures, actor)
	}

	now := s.now()
	var bill *models.Bill
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		var err error
		bill, err = repo.GetForUpdate(ctx, ref)
		if err != nil {
			return storeError(err, "Bill not found")
		}
		if bill.Status.Terminal() {
			return apperror.InvalidState("Cannot modify a %s bill", bill.Status)
		}
		if err := applyBillPatch(bill, patch, drugs, procedures); err != nil {
			return err
		}
		bill.UpdatedAt = now
		bill.Recalculate()
		return repo.Save(ctx, bill)
	})
	if err != nil {
		return nil, storeError(err, "Bill not found")
	}
	return bill, nil
}

func (s *BillingService) create(ctx context.Context, patch BillPatch, drugs []models.BillDrugLine, procedures []models.BillProcedureLine, actor string) (*models.Bill, error) {
	if patch.PatientName == nil || strings.TrimSpace(*patch.PatientName) == "" {
		return nil, apperror.Validation("Patient name is required")
	}

	now := s.now()
	bill := &models.Bill{
		Status:    models.BillDraft,
		CreatedBy: actorOrDefault(actor),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := applyBillPatch(bill, patch, drugs, procedures); err != nil {
		return nil, err
	}
	bill.Recalculate()

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		prefix := BillNumberPrefix(now)
		latest, err := repo.LatestNumber(ctx, prefix)
		if err != nil {
			return err
		}
		if bill.BillNumber, err = NextBillNumber(prefix, latest); err != nil {
			return err
		}
		if err := repo.Create(ctx, bill); err != nil {
			if isUniqueViolation(err) {
				return apperror.Conflict("Bill number %s already exists", bill.BillNumber)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, storeError(err, "")
	}

	loggerOrNop(s.Log).Info("bill created",
		zap.String("bill_number", bill.BillNumber),
		zap.String("total", bill.TotalAmount.StringFixed(2)),
	)
	return bill, nil
}

// UpdateStatus - Move a bill between states. Paying debits dispensed drug
// units from stock in the same database transaction.
func (s *BillingService) UpdateStatus(ctx context.Context, ref string, status string, actor string) (*models.Bill, error) {
	target := models.BillStatus(status)
	if !target.Valid() {
		return nil, apperror.Validation("Invalid status %q", status)
	}

	now := s.now()
	actor = actorOrDefault(actor)
	var billID uuid.UUID
	changed := false

	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)

		bill, err := repo.GetForUpdate(ctx, ref)
		if err != nil {
			return storeError(err, "Bill not found")
		}
		billID = bill.ID
		if bill.Status.Terminal() {
			return apperror.InvalidState("Bill is already %s", bill.Status)
		}
		if bill.Status == target {
			return nil
		}

		fields := map[string]interface{}{
			"status":     target,
			"updated_at": now,
		}
		switch target {
		case models.BillPaid:
			if err := s.dispense(ctx, tx, bill, actor, now); err != nil {
				return err
			}
			fields["paid_at"] = now
		case models.BillCancelled:
			fields["cancelled_at"] = now
		}

		changed = true
		return repo.UpdateFields(ctx, bill, fields)
	})
	if err != nil {
		return nil, storeError(err, "Bill not found")
	}

	if changed {
		loggerOrNop(s.Log).Info("bill status changed",
			zap.String("bill_id", billID.String()),
			zap.String("status", string(target)),
			zap.String("actor", actor),
		)
		if target == models.BillPaid {
			metrics.BillsPaid.Inc()
			notifyStockChanged(ctx, s.Observers)
		}
	}
	return s.Get(ctx, billID.String())
}

// dispense debits units x days for every drug line whose item still exists.
func (s *BillingService) dispense(ctx context.Context, tx *gorm.DB, bill *models.Bill, actor string, now time.Time) error {
	inventory := s.Inventory.WithTx(tx)

	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, line := range bill.Drugs {
		if line.DrugID != nil && !seen[*line.DrugID] {
			seen[*line.DrugID] = true
			ids = append(ids, *line.DrugID)
		}
	}
	if len(ids) == 0 {
		return nil
	}

	items, err := inventory.LockItems(ctx, ids)
	if err != nil {
		return err
	}
	exists := make(map[uuid.UUID]bool, len(items))
	for _, item := range items {
		exists[item.ID] = true
	}

	for _, line := range bill.Drugs {
		if line.DrugID == nil || !exists[*line.DrugID] {
			continue
		}
		units := line.DispensedUnits()
		if units == 0 {
			continue
		}
		ok, err := inventory.Decrement(ctx, *line.DrugID, units, now)
		if err != nil {
			return err
		}
		if !ok {
			available, err := inventory.CurrentQuantity(ctx, *line.DrugID)
			if err != nil {
				return err
			}
			return apperror.InsufficientStock(
				"Insufficient stock for %s: needs %d, available %d",
				line.DrugName, units, available)
		}
		if err := inventory.RecordMovement(ctx, &models.StockMovement{
			InventoryItemID: *line.DrugID,
			Amount:          -units,
			Type:            models.MovementBillDispense,
			RefID:           &bill.ID,
			CreatedBy:       actor,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
	}
	return nil
}

// Delete - Remove a bill unless it is PAID
func (s *BillingService) Delete(ctx context.Context, ref string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Repo.WithTx(tx)
		bill, err := repo.GetForUpdate(ctx, ref)
		if err != nil {
			return storeError(err, "Bill not found")
		}
		if bill.Status == models.BillPaid {
			return apperror.InvalidState("Cannot delete a paid bill")
		}
		return repo.Delete(ctx, bill.ID)
	})
	return storeError(err, "Bill not found")
}

func (s *BillingService) Get(ctx context.Context, ref string) (*models.Bill, error) {
	bill, err := s.Repo.Get(ctx, ref)
	if err != nil {
		return nil, storeError(err, "Bill not found")
	}
	return bill, nil
}

func (s *BillingService) List(ctx context.Context, filter repositories.BillFilter) ([]models.Bill, int64, error) {
	if filter.Status != "" && !models.BillStatus(filter.Status).Valid() {
		return nil, 0, apperror.Validation("Invalid status %q", filter.Status)
	}
	bills, total, err := s.Repo.List(ctx, filter)
	return bills, total, storeError(err, "")
}

// ListProcedures - Active catalog entries
type ProcedureInput struct {
	Name          string
	StandardPrice decimal.Decimal
	Category      string
	Description   string
}

// CreateProcedure - Add an active procedure to the catalog; names are unique
func (s *BillingService) CreateProcedure(ctx context.Context, in ProcedureInput) (*models.Procedure, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.Validation("Procedure name is required")
	}
	if in.StandardPrice.IsNegative() {
		return nil, apperror.Validation("Prices must not be negative")
	}

	taken, err := s.Procedures.NameTaken(ctx, name)
	if err != nil {
		return nil, storeError(err, "")
	}
	if taken {
		return nil, apperror.Conflict("Procedure %s already exists", name)
	}

	now := s.now()
	procedure := &models.Procedure{
		Name:          name,
		StandardPrice: in.StandardPrice,
		Category:      strings.TrimSpace(in.Category),
		Description:   in.Description,
		IsActive:      true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.Procedures.Create(ctx, procedure); err != nil {
		if isUniqueViolation(err) {
			return nil, apperror.Conflict("Procedure %s already exists", name)
		}
		return nil, storeError(err, "")
	}

	loggerOrNop(s.Log).Info("procedure created",
		zap.String("name", procedure.Name),
		zap.String("price", procedure.StandardPrice.StringFixed(2)),
	)
	return procedure, nil
}

func (s *BillingService) ListProcedures(ctx context.Context, search string) ([]models.Procedure, error) {
	procedures, err := s.Procedures.ListActive(ctx, strings.TrimSpace(search))
	return procedures, storeError(err, "")
}

// View - Load a bill and build its cumulative view through section
func (s *BillingService) View(ctx context.Context, ref, section string) (*CumulativeBill, error) {
	through, err := ParseSection(section)
	if err != nil {
		return nil, err
	}
	bill, err := s.Get(ctx, ref)
	if err != nil {
		return nil, err
	}
	return CumulativeView(bill, through), nil
}

// ============ PRIVATE HELPER METHODS ============

// resolveLines validates the patch lines and fills names and prices from the
// inventory and the procedure catalog.
func (s *BillingService) resolveLines(ctx context.Context, patch BillPatch) ([]models.BillDrugLine, []models.BillProcedureLine, error) {
	var drugs []models.BillDrugLine
	if patch.Drugs != nil {
		drugs = make([]models.BillDrugLine, 0, len(*patch.Drugs))
		for _, in := range *patch.Drugs {
			line, err := s.resolveDrug(ctx, in)
			if err != nil {
				return nil, nil, err
			}
			drugs = append(drugs, line)
		}
	}

	var procedures []models.BillProcedureLine
	if patch.Procedures != nil {
		procedures = make([]models.BillProcedureLine, 0, len(*patch.Procedures))
		for _, in := range *patch.Procedures {
			line, err := s.resolveProcedure(ctx, in)
			if err != nil {
				return nil, nil, err
			}
			procedures = append(procedures, line)
		}
	}
	return drugs, procedures, nil
}

func (s *BillingService) resolveDrug(ctx context.Context, in DrugLineInput) (models.BillDrugLine, error) {
	line := models.BillDrugLine{
		DrugID:        in.DrugID,
		DrugName:      strings.TrimSpace(in.DrugName),
		NumberOfUnits: in.NumberOfUnits,
		NumberOfDays:  in.NumberOfDays,
		TimesDaily:    in.TimesDaily,
		Duration:      in.Duration,
	}
	if in.NumberOfUnits < 1 || in.NumberOfDays < 1 {
		return line, apperror.Validation("Drug units and days must be at least 1")
	}
	if in.TimesDaily != "" && !oneOf(in.TimesDaily, models.DosageFrequencies) {
		return line, apperror.Validation("Invalid frequency %q", in.TimesDaily)
	}
	if in.Duration != "" && !oneOf(in.Duration, models.DosageDurations) {
		return line, apperror.Validation("Invalid duration %q", in.Duration)
	}

	if in.DrugID != nil {
		item, err := s.Inventory.GetByID(ctx, *in.DrugID)
		if err != nil {
			if apperror.Is(storeError(err, ""), apperror.KindNotFound) {
				return line, apperror.Validation("Drug not found: %s", in.DrugID)
			}
			return line, storeError(err, "")
		}
		if line.DrugName == "" {
			line.DrugName = item.ItemName
		}
		line.PricePerUnit = item.SellingPrice
	}
	if in.PricePerUnit != nil {
		line.PricePerUnit = *in.PricePerUnit
	}
	if line.DrugName == "" {
		return line, apperror.Validation("Drug name is required")
	}
	if line.PricePerUnit.IsNegative() {
		return line, apperror.Validation("Prices must not be negative")
	}
	return line, nil
}

func (s *BillingService) resolveProcedure(ctx context.Context, in ProcedureLineInput) (models.BillProcedureLine, error) {
	line := models.BillProcedureLine{
		ProcedureID:   in.ProcedureID,
		ProcedureName: strings.TrimSpace(in.ProcedureName),
	}
	if in.ProcedureID != nil {
		procedure, err := s.Procedures.GetByID(ctx, *in.ProcedureID)
		if err != nil {
			if apperror.Is(storeError(err, ""), apperror.KindNotFound) {
				return line, apperror.Validation("Procedure not found: %s", in.ProcedureID)
			}
			return line, storeError(err, "")
		}
		if line.ProcedureName == "" {
			line.ProcedureName = procedure.Name
		}
		line.Price = procedure.StandardPrice
	}
	if in.Price != nil {
		line.Price = *in.Price
	}
	if line.ProcedureName == "" {
		return line, apperror.Validation("Procedure name is required")
	}
	if line.Price.IsNegative() {
		return line, apperror.Validation("Prices must not be negative")
	}
	return line, nil
}

func applyBillPatch(bill *models.Bill, patch BillPatch, drugs []models.BillDrugLine, procedures []models.BillProcedureLine) error {
	if patch.PatientName != nil {
		name := strings.TrimSpace(*patch.PatientName)
		if name == "" {
			return apperror.Validation("Patient name is required")
		}
		bill.PatientName = name
	}
	if patch.PatientID != nil {
		bill.PatientID = *patch.PatientID
	}
	if patch.CardType != nil {
		if *patch.CardType != "" && !oneOf(*patch.CardType, models.CardTypes) {
			return apperror.Validation("Invalid card type %q", *patch.CardType)
		}
		bill.CardType = *patch.CardType
	}
	if c := patch.Consultation; c != nil {
		if c.Type != nil {
			if *c.Type != "" && !oneOf(*c.Type, models.ConsultationTypes) {
				return apperror.Validation("Invalid consultation type %q", *c.Type)
			}
			bill.Consultation.Type = *c.Type
		}
		if c.Price != nil {
			if c.Price.IsNegative() {
				return apperror.Validation("Prices must not be negative")
			}
			bill.Consultation.Price = *c.Price
		}
		if c.IsEmergency != nil {
			bill.Consultation.IsEmergency = *c.IsEmergency
		}
		if c.EmergencyFee != nil {
			if c.EmergencyFee.IsNegative() {
				return apperror.Validation("Prices must not be negative")
			}
			bill.Consultation.EmergencyFee = *c.EmergencyFee
		}
	}
	if patch.Drugs != nil {
		bill.Drugs = drugs
	}
	if patch.Procedures != nil {
		bill.Procedures = procedures
	}
	if a := patch.Admission; a != nil {
		if a.Type != nil {
			if *a.Type != "" && !oneOf(*a.Type, models.AdmissionTypes) {
				return apperror.Validation("Invalid admission type %q", *a.Type)
			}
			bill.Admission.Type = *a.Type
		}
		if a.Price != nil {
			if a.Price.IsNegative() {
				return apperror.Validation("Prices must not be negative")
			}
			bill.Admission.Price = *a.Price
		}
	}
	if patch.Notes != nil {
		bill.Notes = *patch.Notes
	}
	return nil
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

// DefaultProcedures is the starter catalog installed on an empty database.
var DefaultProcedures = []models.Procedure{
	{Name: "Wound Dressing", StandardPrice: decimal.NewFromInt(2500), Category: "Minor Procedure"},
	{Name: "Suturing", StandardPrice: decimal.NewFromInt(5000), Category: "Minor Procedure"},
	{Name: "Injection Administration", StandardPrice: decimal.NewFromInt(1000), Category: "Nursing"},
	{Name: "IV Cannulation", StandardPrice: decimal.NewFromInt(3000), Category: "Nursing"},
	{Name: "ECG", StandardPrice: decimal.NewFromInt(7500), Category: "Diagnostics"},
	{Name: "Full Blood Count", StandardPrice: decimal.NewFromInt(4000), Category: "Laboratory"},
	{Name: "Malaria Parasite Test", StandardPrice: decimal.NewFromInt(2000), Category: "Laboratory"},
	{Name: "Ultrasound Scan", StandardPrice: decimal.NewFromInt(10000), Category: "Imaging"},
}

// SeedProcedures - Install DefaultProcedures when the catalog is empty
func (s *BillingService) SeedProcedures(ctx context.Context) (int, error) {
	count, err := s.Procedures.Count(ctx)
	if err != nil {
		return 0, storeError(err, "")
	}
	if count > 0 {
		return 0, nil
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.Procedures.WithTx(tx)
		for _, p := range DefaultProcedures {
			procedure := p
			procedure.IsActive = true
			if err := repo.Upsert(ctx, &procedure); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, storeError(err, "")
	}
	return len(DefaultProcedures), nil
}
