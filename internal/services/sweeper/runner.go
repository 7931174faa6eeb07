package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/NordCoder/Rotatus/internal/config/sweeper"
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.SweepCfg

	mDeleted prometheus.Counter
	mErr     prometheus.Counter
	mLoopDur prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.SweepCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		mDeleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_tokens_deleted_total", Help: "Expired refresh tokens purged",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_errors_total", Help: "Errors in sweeper loop",
		}),
		mLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "sweeper_loop_duration_seconds", Help: "Sweeper tick duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()
	deleted, err := r.UC.Tick(ctx, r.Cfg.Grace, r.Cfg.BatchLimit)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("tick error", zap.Error(err))
	}
	if deleted > 0 {
		r.mDeleted.Add(float64(deleted))
		r.Log.Debug("purged batch", zap.Int64("deleted", deleted))
	}
	r.mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
