package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReferralVolume is the daily roll-up of attributed volume per referrer.
// One row per (referrer, date), upserted on first attribution of the day.
type ReferralVolume struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_referrer_date" json:"referrerId"`
	Referrer      Referrer  `gorm:"foreignKey:ReferrerID;references:ID" json:"-"`
	Date          time.Time `gorm:"type:date;not null;uniqueIndex:idx_referrer_date" json:"date"`
	VolumeUsd     float64   `gorm:"not null;default:0" json:"volumeUsd"`
	CommissionUsd float64   `gorm:"not null;default:0" json:"commissionUsd"`
	TradeCount    int       `gorm:"not null;default:0" json:"tradeCount"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (v *ReferralVolume) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

// RollupDate pins the daily bucket to a UTC calendar date so rows never
// straddle midnight differently across regions.
func RollupDate(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
