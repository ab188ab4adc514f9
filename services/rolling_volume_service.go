package services

import (
	"context"
	"time"

	"affiliate/repository"
	"affiliate/services/logger"
)

const rollingWindow = 30 * 24 * time.Hour

// RollingVolumeService is the nightly maintenance behind the referrals'
// last_30_days_volume field. The attribution engine only ever accumulates
// into it; this job zeroes the accumulator for referrals with no activity in
// the window. Known limitation: a referral that trades at least once every
// 30 days keeps its full accumulated figure, because the per-referrer daily
// roll-up has no per-referee breakdown to recompute a true window from.
type RollingVolumeService struct {
	store  repository.Store
	logger logger.Logger
}

func NewRollingVolumeService(store repository.Store, log logger.Logger) *RollingVolumeService {
	return &RollingVolumeService{store: store, logger: log}
}

// DecayRollingVolumes resets last_30_days_volume for stale referrals.
func (s *RollingVolumeService) DecayRollingVolumes() error {
	ctx := context.Background()
	cutoff := time.Now().Add(-rollingWindow)
	touched, err := s.store.ResetStaleRollingVolumes(ctx, cutoff)
	if err != nil {
		s.logger.Error("rolling volume decay: %v", err)
		return err
	}
	s.logger.Info("rolling volume decay reset %d stale referrals", touched)
	return nil
}
