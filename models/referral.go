package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Referral ties a referee wallet to exactly one referrer, for life.
type Referral struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID       uuid.UUID `gorm:"type:uuid;not null;index" json:"referrerId"`
	Referrer         Referrer  `gorm:"foreignKey:ReferrerID;references:ID" json:"-"`
	RefereeAddress   string    `gorm:"type:varchar(42);uniqueIndex;not null" json:"refereeAddress"`
	LifetimeVolume   float64   `gorm:"not null;default:0" json:"lifetimeVolume"`
	Last30DaysVolume float64   `gorm:"not null;default:0" json:"last30DaysVolume"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"createdAt"`
	LastActiveAt     time.Time `json:"lastActiveAt"`
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
