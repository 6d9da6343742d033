package service

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"anoa.com/foodrescue/internal/entity"
	"anoa.com/foodrescue/internal/metrics"
	"anoa.com/foodrescue/pkg/apperror"
	"anoa.com/foodrescue/pkg/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const JobName = "expiry-sweeper"

// ExpiredFinder lists donations past their expiry that are not terminal.
type ExpiredFinder interface {
	FindExpired(ctx context.Context, now time.Time, limit int) ([]*entity.Donation, error)
}

// Expirer drives one donation through the expire transition.
type Expirer interface {
	Expire(ctx context.Context, donationID uuid.UUID) (*entity.Donation, error)
}

// SweepResult summarizes one sweep. Skipped is set when another sweep was
// already running and this one did nothing.
type SweepResult struct {
	Scanned int  `json:"scanned"`
	Expired int  `json:"expired"`
	Failed  int  `json:"failed"`
	Skipped bool `json:"skipped"`
}

type Sweeper struct {
	finder   ExpiredFinder
	expirer  Expirer
	clock    clock.Clock
	batch    int
	schedule string
	running  atomic.Bool
	log      *zap.Logger
}

func NewSweeper(finder ExpiredFinder, expirer Expirer, clk clock.Clock, batch int, schedule string, log *zap.Logger) *Sweeper {
	if batch < 1 {
		batch = 200
	}
	return &Sweeper{
		finder:   finder,
		expirer:  expirer,
		clock:    clk,
		batch:    batch,
		schedule: schedule,
		log:      log,
	}
}

func (s *Sweeper) Name() string     { return JobName }
func (s *Sweeper) Schedule() string { return s.schedule }

func (s *Sweeper) Execute(ctx context.Context) error {
	_, err := s.Sweep(ctx)
	return err
}

// Sweep expires every overdue donation. Each donation is handled on its own:
// one failure is logged and the rest of the batch continues.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("expiry sweep already running, skipping")
		metrics.RecordSweep("skipped", 0, 0)
		return SweepResult{Skipped: true}, nil
	}
	defer s.running.Store(false)

	start := time.Now()
	now := s.clock.Now()
	var result SweepResult

	// expired rows drop out of the query; rows that failed or lost a race
	// stay in it, so they are remembered and the page widened to step past them
	stuck := make(map[uuid.UUID]struct{})
	for {
		if err := ctx.Err(); err != nil {
			s.finish(result, start)
			return result, err
		}

		limit := s.batch + len(stuck)
		donations, err := s.finder.FindExpired(ctx, now, limit)
		if err != nil {
			s.finish(result, start)
			return result, apperror.Dependency("find expired donations", err)
		}

		fresh := 0
		for _, d := range donations {
			if _, ok := stuck[d.ID]; ok {
				continue
			}
			fresh++
			result.Scanned++

			if _, err := s.expirer.Expire(ctx, d.ID); err != nil {
				stuck[d.ID] = struct{}{}
				if errors.Is(err, apperror.ErrInvalidTransition) {
					// another writer moved it first
					continue
				}
				result.Failed++
				s.log.Error("failed to expire donation",
					zap.String("donation_id", d.ID.String()),
					zap.Error(err),
				)
				continue
			}
			result.Expired++
		}

		if fresh == 0 || len(donations) < limit {
			break
		}
	}

	s.finish(result, start)
	return result, nil
}

func (s *Sweeper) finish(result SweepResult, start time.Time) {
	took := time.Since(start)
	metrics.RecordSweep("completed", result.Expired, took)
	s.log.Info("expiry sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
		zap.Duration("took", took),
	)
}
