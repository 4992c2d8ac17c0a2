package syncclient

import (
	"context"
	"time"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/localstore"
	"ecospectre-be/pkg/scan"

	"github.com/cenkalti/backoff/v5"
)

const (
	DefaultDrainInterval = 30 * time.Second
	DefaultMaxBackoff    = 5 * time.Minute
)

type DrainResult struct {
	Attempted int
	Synced    int
	// Deferred counts records the server accepted into memory only; they stay pending.
	Deferred int
	Failed   int
}

type DrainerConfig struct {
	Interval   time.Duration
	MaxBackoff time.Duration
	// OnProgress, when set, is called after every attempted record.
	OnProgress func(done, total int)
}

// Drainer is the outbox: it keeps resubmitting pending records until the server has them.
type Drainer struct {
	queue   localstore.Queue
	sender  ScanSender
	logger  logger.ILogger
	cfg     DrainerConfig
	backoff *backoff.ExponentialBackOff
	trigger chan struct{}
}

func NewDrainer(queue localstore.Queue, sender ScanSender, cfg DrainerConfig, log logger.ILogger) *Drainer {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultDrainInterval
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = DefaultMaxBackoff
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Second
	b.MaxInterval = cfg.MaxBackoff
	b.Reset()

	return &Drainer{
		queue:   queue,
		sender:  sender,
		logger:  log,
		cfg:     cfg,
		backoff: b,
		trigger: make(chan struct{}, 1),
	}
}

// Pending lists records the server has not confirmed, oldest first.
func (d *Drainer) Pending(ctx context.Context) []scan.Record {
	all := d.queue.GetAll(ctx, "")
	pending := make([]scan.Record, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Pending {
			pending = append(pending, all[i])
		}
	}
	return pending
}

// DrainOnce submits every pending record once. A network failure ends the pass early
// since the rest would fail the same way.
func (d *Drainer) DrainOnce(ctx context.Context) DrainResult {
	var res DrainResult
	pending := d.Pending(ctx)

	for _, rec := range pending {
		if ctx.Err() != nil {
			break
		}
		res.Attempted++

		created, err := d.sender.CreateScan(ctx, rec, rec.ID)
		deferred := err == nil && !created.Durable()
		if err == nil && !deferred {
			err = d.queue.MarkSynced(ctx, rec.ID)
		}
		if d.cfg.OnProgress != nil {
			d.cfg.OnProgress(res.Attempted, len(pending))
		}

		if deferred {
			res.Deferred++
			continue
		}
		if err != nil {
			res.Failed++
			d.logger.Warn("Drainer", "Failed to sync scan", map[string]interface{}{"id": rec.ID, "error": err})
			if scan.IsTransient(err) {
				break
			}
			continue
		}
		res.Synced++
	}

	if res.Attempted > 0 {
		d.logger.Info("Drainer", "Drain pass finished", map[string]interface{}{
			"pending":   len(pending),
			"attempted": res.Attempted,
			"synced":    res.Synced,
			"deferred":  res.Deferred,
			"failed":    res.Failed,
		})
	}
	return res
}

// Trigger asks a running drainer to start a pass now, e.g. after connectivity returns.
func (d *Drainer) Trigger() {
	select {
	case d.trigger <- struct{}{}:
	default:
	}
}

// Run drains on every interval until ctx is done. Failing passes back off exponentially
// up to MaxBackoff; a trigger or a clean pass resets the delay.
func (d *Drainer) Run(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.trigger:
			d.backoff.Reset()
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		res := d.DrainOnce(ctx)
		timer.Reset(d.nextDelay(res))
	}
}

func (d *Drainer) nextDelay(res DrainResult) time.Duration {
	if res.Failed == 0 {
		d.backoff.Reset()
		return d.cfg.Interval
	}
	next := d.backoff.NextBackOff()
	if next == backoff.Stop || next > d.cfg.MaxBackoff {
		next = d.cfg.MaxBackoff
	}
	return next
}
