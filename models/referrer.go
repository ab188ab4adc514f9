package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Referrer is a wallet registered to earn affiliate commissions.
type Referrer struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	WalletAddress string    `gorm:"type:varchar(42);uniqueIndex;not null" json:"walletAddress"`
	ReferralCode  string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"referralCode"`
	Tier          Tier      `gorm:"type:varchar(10);not null;default:BRONZE" json:"tier"`
	TotalVolume   float64   `gorm:"not null;default:0" json:"totalVolume"`
	TotalEarned   float64   `gorm:"not null;default:0" json:"totalEarned"`
	PendingPayout float64   `gorm:"not null;default:0" json:"pendingPayout"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (r *Referrer) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// GenerateReferralCode derives the initial code from a wallet address:
// the 8 hex characters after the 0x prefix, uppercased.
func GenerateReferralCode(walletAddress string) string {
	return strings.ToUpper(walletAddress[2:10])
}
