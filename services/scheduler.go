// services/scheduler.go
package services

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// publishJobTimeout bounds one scheduled archive run.
const publishJobTimeout = 30 * time.Second

// StartPublishScheduler archives the active table listing on the crontab
// schedule cronExpr. The returned scheduler must be shut down by the caller.
func (s *PublishService) StartPublishScheduler(cronExpr string) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(s.runArchiveJob),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("archive-listing"),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	s.log.WithField("cron", cronExpr).Info("[Scheduler] listing archive scheduled")
	return sched, nil
}

func (s *PublishService) runArchiveJob() {
	ctx, cancel := context.WithTimeout(context.Background(), publishJobTimeout)
	defer cancel()

	a, err := s.BuildAnnouncement(ctx)
	if errors.Is(err, ErrNothingToPublish) {
		s.log.Info("[Scheduler] no active tables, nothing archived")
		return
	}
	if err != nil {
		s.log.WithError(err).Error("[Scheduler] building listing failed")
		return
	}
	if _, err := s.ArchiveListing(ctx, a); err != nil {
		s.log.WithError(err).Error("[Scheduler] archiving listing failed")
	}
}
