package services

import (
	"context"
	"time"

	"github.com/CyberAli-eng/LaCleoOmnia-auto/models"
	"github.com/CyberAli-eng/LaCleoOmnia-auto/repository"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// AbandonedCartScanner periodically finds stale pending checkouts, marks
// them abandoned and triggers the abandoned-cart campaign.
//
// The scanner is self-healing: a failed tick or candidate logs and moves on,
// it never stops the schedule. Coordination with concurrent order webhooks
// is the re-read in processCandidate plus the conditional writes underneath;
// no in-process locks are involved.
type AbandonedCartScanner struct {
	lifecycle *LifecycleService
	checkouts repository.CheckoutRepository
	threshold time.Duration
	schedule  string
	logger    *zap.Logger
	cron      *cron.Cron
}

// NewAbandonedCartScanner creates a new scanner. thresholdMinutes is the
// idle time after which a pending checkout counts as abandoned; schedule is
// a cron expression.
func NewAbandonedCartScanner(
	lifecycle *LifecycleService,
	checkouts repository.CheckoutRepository,
	thresholdMinutes int,
	schedule string,
	logger *zap.Logger,
) *AbandonedCartScanner {
	return &AbandonedCartScanner{
		lifecycle: lifecycle,
		checkouts: checkouts,
		threshold: time.Duration(thresholdMinutes) * time.Minute,
		schedule:  schedule,
		logger:    logger,
	}
}

// Start registers the scan on the cron schedule and starts the scheduler.
func (s *AbandonedCartScanner) Start() error {
	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.schedule, func() {
		s.RunOnce(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("Abandoned cart scanner started",
		zap.String("schedule", s.schedule),
		zap.Duration("threshold", s.threshold),
	)
	return nil
}

// Stop stops the scheduler and waits for an in-flight tick to finish.
func (s *AbandonedCartScanner) Stop() {
	if s.cron != nil {
		<-s.cron.Stop().Done()
		s.logger.Info("Abandoned cart scanner stopped")
	}
}

// RunOnce executes a single scan tick. Exported so the admin endpoint and
// tests can drive a tick directly.
func (s *AbandonedCartScanner) RunOnce(ctx context.Context) {
	cutoff := time.Now().Add(-s.threshold)

	candidates, err := s.checkouts.FindAbandonmentCandidates(ctx, cutoff)
	if err != nil {
		s.logger.Error("Abandoned cart scan query failed", zap.Error(err))
		return
	}
	if len(candidates) == 0 {
		return
	}

	s.logger.Info("Processing abandoned checkout candidates", zap.Int("count", len(candidates)))

	for i := range candidates {
		s.processCandidate(ctx, &candidates[i])
	}
}

// processCandidate re-reads the checkout immediately before acting: the
// candidate row may have converted (or been dispatched) since the scan
// query. The re-read is mandatory, not an optimization.
func (s *AbandonedCartScanner) processCandidate(ctx context.Context, candidate *models.Checkout) {
	current, err := s.checkouts.FindByCheckoutID(ctx, candidate.CheckoutID)
	if err != nil {
		s.logger.Error("Failed to reload checkout candidate",
			zap.String("checkout_id", candidate.CheckoutID),
			zap.Error(err),
		)
		return
	}

	// Converted checkouts are terminal; a stamped gate means the campaign
	// already closed the loop. Both are skips, never errors.
	if current.Status == models.CheckoutStatusConverted || current.CampaignSentAt != nil {
		s.logger.Info("Checkout already handled, skipping",
			zap.String("checkout_id", current.CheckoutID),
			zap.String("status", current.Status),
		)
		return
	}

	if current.Status == models.CheckoutStatusPending {
		if err := s.lifecycle.MarkCheckoutAbandoned(ctx, current.CheckoutID); err != nil {
			s.logger.Error("Failed to mark checkout abandoned",
				zap.String("checkout_id", current.CheckoutID),
				zap.Error(err),
			)
			return
		}
	}

	if err := s.lifecycle.DispatchAbandoned(ctx, current); err != nil {
		s.logger.Error("Abandoned cart dispatch failed",
			zap.String("checkout_id", current.CheckoutID),
			zap.Error(err),
		)
	}
}
