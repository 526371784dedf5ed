package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mescon/Dupearr/internal/logger"
)

// scheduledRunTimeout bounds a single scheduled full run.
const scheduledRunTimeout = 4 * time.Hour

// SchedulerService runs full scans on a cron expression in serve mode.
type SchedulerService struct {
	runner *Runner
	cron   *cron.Cron

	mu      sync.Mutex
	entryID cron.EntryID
	active  bool
}

func NewSchedulerService(runner *Runner) *SchedulerService {
	return &SchedulerService{
		runner: runner,
		cron:   cron.New(),
	}
}

// Start begins the cron loop and installs the configured schedule, if any.
func (s *SchedulerService) Start(cronExpr string) error {
	s.cron.Start()
	if cronExpr == "" {
		logger.Infof("Scheduler: no scan schedule configured")
		return nil
	}
	if err := s.SetSchedule(cronExpr); err != nil {
		return err
	}
	logger.Infof("Scheduler: scans scheduled with %q", cronExpr)
	return nil
}

// Stop halts the cron loop. Running jobs are not interrupted.
func (s *SchedulerService) Stop() {
	s.cron.Stop()
}

// SetSchedule replaces the scan schedule with a new cron expression. Empty
// removes the schedule.
func (s *SchedulerService) SetSchedule(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	if cronExpr == "" {
		return nil
	}

	if _, err := cron.ParseStandard(cronExpr); err != nil {
		return fmt.Errorf("invalid cron expression: %v", err)
	}

	entryID, err := s.cron.AddFunc(cronExpr, s.runScheduled)
	if err != nil {
		return err
	}
	s.entryID = entryID
	return nil
}

// NextRun returns the next scheduled run time, or zero when unscheduled.
func (s *SchedulerService) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entryID == 0 {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}

func (s *SchedulerService) runScheduled() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		logger.Warnf("Scheduler: previous run still active, skipping this trigger")
		return
	}
	s.active = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), scheduledRunTimeout)
	defer cancel()

	logger.Infof("Scheduler: starting scheduled full run")
	if _, err := s.runner.FullRun(ctx, ScanOptions{}); err != nil {
		logger.Errorf("Scheduled run failed: %v", err)
	}
}
