package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Procedure struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
	StandardPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"standard_price"`
	Category      string          `gorm:"type:varchar(100)" json:"category,omitempty"`
	Description   string          `gorm:"type:text" json:"description,omitempty"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (Procedure) TableName() string {
	return "procedures"
}

func (p *Procedure) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
