package jobs

import (
	"log"

	"github.com/robfig/cron/v3"
)

// RollingVolumeMaintainer decays the referrals' 30-day volume accumulators.
type RollingVolumeMaintainer interface {
	DecayRollingVolumes() error
}

var rollingVolumeMaintainer RollingVolumeMaintainer

// SetRollingVolumeMaintainer installs the implementation the nightly job
// calls into.
func SetRollingVolumeMaintainer(m RollingVolumeMaintainer) {
	rollingVolumeMaintainer = m
}

// InitCronJobs schedules the nightly rolling-volume maintenance at 00:00.
// The accurate rolling window would need per-referee daily rows, which the
// schema does not keep; this job only zeroes referrals idle beyond the
// window. See services.RollingVolumeService.
func InitCronJobs(c *cron.Cron) error {
	_, err := c.AddFunc("0 0 * * *", func() {
		if rollingVolumeMaintainer == nil {
			log.Printf("rolling volume maintainer not configured, skipping")
			return
		}
		if err := rollingVolumeMaintainer.DecayRollingVolumes(); err != nil {
			log.Printf("rolling volume maintenance failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	log.Println("Cron jobs initialized successfully")
	return nil
}
