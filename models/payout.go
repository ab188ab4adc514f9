package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payout status
const (
	PayoutStatusPending    = "PENDING"
	PayoutStatusProcessing = "PROCESSING"
	PayoutStatusCompleted  = "COMPLETED"
	PayoutStatusFailed     = "FAILED"
)

// Payout is a commission disbursement record. Rows are written by the
// settlement trigger; this service only reads them back for history.
type Payout struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"referrerId"`
	Referrer     Referrer   `gorm:"foreignKey:ReferrerID;references:ID" json:"-"`
	AmountUsd    float64    `gorm:"not null" json:"amountUsd"`
	Status       string     `gorm:"type:varchar(20);not null;default:PENDING" json:"status"`
	TxHash       string     `gorm:"type:varchar(66)" json:"txHash,omitempty"`
	ErrorMessage string     `gorm:"type:varchar(255)" json:"errorMessage,omitempty"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`
}

func (p *Payout) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
