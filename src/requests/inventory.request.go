package requests

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"clinic-ops/src/services"
)

// ============ CREATE ============
type CreateItemRequest struct {
	ItemName             string          `json:"item_name" binding:"required,max=200"`
	SKU                  string          `json:"sku" binding:"required,max=100"`
	Barcode              *string         `json:"barcode,omitempty" binding:"omitempty,barcode"`
	GenerateBarcode      bool            `json:"generate_barcode"`
	BatchNumber          string          `json:"batch_number" binding:"max=100"`
	ExpirationDate       *string         `json:"expiration_date,omitempty"`
	Quantity             int             `json:"quantity" binding:"min=0"`
	MinimumStock         *int            `json:"minimum_stock,omitempty" binding:"omitempty,min=0"`
	UnitType             string          `json:"unit_type" binding:"omitempty,oneof=piece box bottle vial pack strip tube sachet other"`
	Category             string          `json:"category" binding:"required,oneof=medication equipment consumables surgical diagnostic other"`
	Subcategory          string          `json:"subcategory"`
	Description          string          `json:"description"`
	Manufacturer         string          `json:"manufacturer"`
	Supplier             string          `json:"supplier"`
	UnitPrice            decimal.Decimal `json:"unit_price"`
	SellingPrice         decimal.Decimal `json:"selling_price"`
	StorageLocation      string          `json:"storage_location"`
	RequiresPrescription bool            `json:"requires_prescription"`
	Notes                string          `json:"notes"`
}

func (r CreateItemRequest) ToInput() (services.CreateItemInput, error) {
	expires, err := ParseDate(r.ExpirationDate)
	if err != nil {
		return services.CreateItemInput{}, err
	}
	barcode := r.Barcode
	if r.GenerateBarcode {
		barcode = nil
	}
	return services.CreateItemInput{
		ItemName:             r.ItemName,
		SKU:                  r.SKU,
		Barcode:              barcode,
		BatchNumber:          r.BatchNumber,
		ExpirationDate:       expires,
		Quantity:             r.Quantity,
		MinimumStock:         r.MinimumStock,
		UnitType:             r.UnitType,
		Category:             r.Category,
		Subcategory:          r.Subcategory,
		Description:          r.Description,
		Manufacturer:         r.Manufacturer,
		Supplier:             r.Supplier,
		UnitPrice:            r.UnitPrice,
		SellingPrice:         r.SellingPrice,
		StorageLocation:      r.StorageLocation,
		RequiresPrescription: r.RequiresPrescription,
		Notes:                r.Notes,
	}, nil
}

// ============ UPDATE ============

// UpdateItemRequest is a partial patch. An empty expiration_date string
// clears the date.
type UpdateItemRequest struct {
	ItemName             *string          `json:"item_name,omitempty" binding:"omitempty,max=200"`
	SKU                  *string          `json:"sku,omitempty" binding:"omitempty,max=100"`
	Barcode              *string          `json:"barcode,omitempty" binding:"omitempty,barcode"`
	BatchNumber          *string          `json:"batch_number,omitempty"`
	ExpirationDate       *string          `json:"expiration_date,omitempty"`
	MinimumStock         *int             `json:"minimum_stock,omitempty" binding:"omitempty,min=0"`
	UnitType             *string          `json:"unit_type,omitempty" binding:"omitempty,oneof=piece box bottle vial pack strip tube sachet other"`
	Category             *string          `json:"category,omitempty" binding:"omitempty,oneof=medication equipment consumables surgical diagnostic other"`
	Subcategory          *string          `json:"subcategory,omitempty"`
	Description          *string          `json:"description,omitempty"`
	Manufacturer         *string          `json:"manufacturer,omitempty"`
	Supplier             *string          `json:"supplier,omitempty"`
	UnitPrice            *decimal.Decimal `json:"unit_price,omitempty"`
	SellingPrice         *decimal.Decimal `json:"selling_price,omitempty"`
	StorageLocation      *string          `json:"storage_location,omitempty"`
	RequiresPrescription *bool            `json:"requires_prescription,omitempty"`
	IsActive             *bool            `json:"is_active,omitempty"`
	Notes                *string          `json:"notes,omitempty"`
}

func (r UpdateItemRequest) ToInput() (services.UpdateItemInput, error) {
	in := services.UpdateItemInput{
		ItemName:             r.ItemName,
		SKU:                  r.SKU,
		Barcode:              r.Barcode,
		BatchNumber:          r.BatchNumber,
		MinimumStock:         r.MinimumStock,
		UnitType:             r.UnitType,
		Category:             r.Category,
		Subcategory:          r.Subcategory,
		Description:          r.Description,
		Manufacturer:         r.Manufacturer,
		Supplier:             r.Supplier,
		UnitPrice:            r.UnitPrice,
		SellingPrice:         r.SellingPrice,
		StorageLocation:      r.StorageLocation,
		RequiresPrescription: r.RequiresPrescription,
		IsActive:             r.IsActive,
		Notes:                r.Notes,
	}
	if r.ExpirationDate != nil {
		if *r.ExpirationDate == "" {
			in.ClearExpiration = true
		} else {
			expires, err := ParseDate(r.ExpirationDate)
			if err != nil {
				return in, err
			}
			in.ExpirationDate = expires
		}
	}
	return in, nil
}

// ============ QUANTITY ============
type AdjustQuantityRequest struct {
	Change int    `json:"change" binding:"required"`
	Reason string `json:"reason" binding:"max=500"`
}

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns UTC. nil or empty
// input yields nil.
func ParseDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		t, err = time.Parse("2006-01-02", *s)
		if err != nil {
			return nil, errors.New("invalid date format. Use YYYY-MM-DD or RFC3339")
		}
	}
	t = t.UTC()
	return &t, nil
}
