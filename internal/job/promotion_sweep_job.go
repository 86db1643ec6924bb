package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/yawiki/internal/settings"
)

// PromotionSweepJob logs giveaways that are over, either because their
// window closed or because no giveaways are left. Nothing is removed.
type PromotionSweepJob struct {
	promotions *settings.PromotionStore
	now        func() time.Time
}

func NewPromotionSweepJob(promotions *settings.PromotionStore) *PromotionSweepJob {
	return &PromotionSweepJob{promotions: promotions, now: time.Now}
}

func (j *PromotionSweepJob) Name() string {
	return "promotion_sweep"
}

// Finished returns the ids of giveaways that can no longer be claimed.
func (j *PromotionSweepJob) Finished(ctx context.Context) ([]string, error) {
	all, err := j.promotions.List(ctx)
	if err != nil {
		return nil, err
	}
	now := j.now()
	finished := make([]string, 0)
	for _, p := range all {
		if p.Type != settings.PromotionTypeGiveaway {
			continue
		}
		if p.EndedAt(now) || p.Remaining() <= 0 {
			finished = append(finished, p.ID)
		}
	}
	return finished, nil
}

func (j *PromotionSweepJob) Run(ctx context.Context) error {
	finished, err := j.Finished(ctx)
	if err != nil {
		return err
	}
	if len(finished) > 0 {
		logutil.GetLogger(ctx).Info("giveaways finished", zap.String("job", j.Name()), zap.Strings("promotions", finished))
	}
	return nil
}
