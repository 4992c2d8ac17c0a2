package syncclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/scan"
)

const DefaultPublishTimeout = 30 * time.Second

// ScanSender is the part of APIClient the publisher and drainer need.
type ScanSender interface {
	CreateScan(ctx context.Context, rec scan.Record, idempotencyKey string) (*CreateResult, error)
}

type SyncMarker interface {
	MarkSynced(ctx context.Context, id string) error
}

// Publisher sends freshly queued records in the background. Callers never wait on it
// and never see its errors; failed records stay pending for the drainer.
type Publisher struct {
	sender  ScanSender
	marker  SyncMarker
	logger  logger.ILogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewPublisher(sender ScanSender, marker SyncMarker, log logger.ILogger) *Publisher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Publisher{
		sender:  sender,
		marker:  marker,
		logger:  log,
		timeout: DefaultPublishTimeout,
	}
}

// Publish returns immediately. The upload runs on its own context so cancelling the
// caller does not abort it.
func (p *Publisher) Publish(rec scan.Record) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("Publisher", "Recovered from panic while publishing scan", map[string]interface{}{
					"id":    rec.ID,
					"panic": fmt.Sprint(r),
				})
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		defer cancel()

		if err := p.publish(ctx, rec); err != nil {
			p.logger.Warn("Publisher", "Background sync failed, scan stays pending", map[string]interface{}{
				"id":        rec.ID,
				"error":     err,
				"transient": scan.IsTransient(err),
			})
		}
	}()
}

func (p *Publisher) publish(ctx context.Context, rec scan.Record) error {
	res, err := p.sender.CreateScan(ctx, rec, rec.ID)
	if err != nil {
		return err
	}
	if !res.Durable() {
		p.logger.Info("Publisher", "Server kept scan in memory only, leaving it pending", map[string]interface{}{
			"id":        rec.ID,
			"server_id": res.ID,
		})
		return nil
	}
	if err := p.marker.MarkSynced(ctx, rec.ID); err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	p.logger.Info("Publisher", "Scan synced", map[string]interface{}{
		"id":        rec.ID,
		"server_id": res.ID,
		"storage":   res.Storage,
	})
	return nil
}

// Wait blocks until in-flight publishes finish or timeout passes. It reports whether all finished.
func (p *Publisher) Wait(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}
