package dto

import (
	"time"

	"affiliate/models"

	"github.com/google/uuid"
)

// RegisterAffiliateRequest is the body of POST /api/affiliate/register.
type RegisterAffiliateRequest struct {
	WalletAddress string `json:"walletAddress" binding:"required"`
}

// TrackReferralRequest is the body of POST /api/affiliate/track.
type TrackReferralRequest struct {
	ReferralCode   string `json:"referralCode" binding:"required"`
	RefereeAddress string `json:"refereeAddress" binding:"required"`
}

// AffiliateStats is the dashboard projection for one referrer.
type AffiliateStats struct {
	WalletAddress        string      `json:"walletAddress"`
	ReferralCode         string      `json:"referralCode"`
	Tier                 models.Tier `json:"tier"`
	CommissionRate       float64     `json:"commissionRate"`
	TotalVolumeGenerated float64     `json:"totalVolumeGenerated"`
	TotalReferrals       int64       `json:"totalReferrals"`
	TotalEarned          float64     `json:"totalEarned"`
	PendingPayout        float64     `json:"pendingPayout"`
	VolumeToNextTier     float64     `json:"volumeToNextTier"`
	NextTier             string      `json:"nextTier,omitempty"`
}

// ReferralItem is one row of the referrals list.
type ReferralItem struct {
	Address          string    `json:"address"`
	JoinedAt         time.Time `json:"joinedAt"`
	LifetimeVolume   float64   `json:"lifetimeVolume"`
	Last30DaysVolume float64   `json:"last30DaysVolume"`
	LastActiveAt     time.Time `json:"lastActiveAt"`
}

// PayoutItem is one row of the payout history.
type PayoutItem struct {
	ID          uuid.UUID  `json:"id"`
	Amount      float64    `json:"amount"`
	Status      string     `json:"status"`
	TxHash      string     `json:"txHash,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	ProcessedAt *time.Time `json:"processedAt,omitempty"`
}
