// FILE: internal/service/reconcile_service.go
package service

import (
	"context"
	"encoding/json"
	"time"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const defaultReconcileRetryDelay = 5 * time.Second

type IReconcileService interface {
	Consume(ctx context.Context) error
}

// reconcileService replays transient scans into the durable store once it is reachable.
// Only started when RECONCILE_TRANSIENT=true.
type reconcileService struct {
	subscriber message.Subscriber
	uowFactory unitofwork.RepositoryFactory
	transient  contract.ScanRepository
	logger     logger.ILogger
	retryDelay time.Duration
}

func NewReconcileService(
	subscriber message.Subscriber,
	uowFactory unitofwork.RepositoryFactory,
	transient contract.ScanRepository,
	log logger.ILogger,
) IReconcileService {
	return &reconcileService{
		subscriber: subscriber,
		uowFactory: uowFactory,
		transient:  transient,
		logger:     log,
		retryDelay: defaultReconcileRetryDelay,
	}
}

func (rs *reconcileService) Consume(ctx context.Context) error {
	messages, err := rs.subscriber.Subscribe(ctx, TransientTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			rs.processMessage(ctx, msg)
		}
	}()

	rs.logger.Info("ReconcileService", "Transient scan reconciliation started", nil)
	return nil
}

// retryLater waits before Nack so an unreachable store does not spin the redelivery loop.
func (rs *reconcileService) retryLater(ctx context.Context, msg *message.Message) {
	select {
	case <-ctx.Done():
	case <-time.After(rs.retryDelay):
	}
	msg.Nack()
}

func (rs *reconcileService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.TransientScanMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		rs.logger.Error("ReconcileService", "Failed to unmarshal message", map[string]interface{}{"error": err})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	id, err := uuid.Parse(payload.Id)
	if err != nil {
		msg.Ack()
		return
	}

	record, err := rs.transient.FindByID(ctx, id)
	if err != nil || record == nil {
		// Already reconciled or evicted.
		msg.Ack()
		return
	}

	uow, err := rs.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		rs.retryLater(ctx, msg)
		return
	}

	existing, err := uow.ScanRepository().FindByID(ctx, id)
	if err != nil {
		rs.retryLater(ctx, msg)
		return
	}
	if existing == nil {
		if err := uow.ScanRepository().Create(ctx, record); err != nil {
			rs.uowFactory.ReportFailure(err)
			rs.logger.Warn("ReconcileService", "Durable write failed, will retry", map[string]interface{}{"scan_id": payload.Id, "error": err})
			rs.retryLater(ctx, msg)
			return
		}
	}

	if err := rs.transient.Delete(ctx, id); err != nil {
		rs.logger.Warn("ReconcileService", "Failed to drop reconciled scan from transient store", map[string]interface{}{"scan_id": payload.Id, "error": err})
	}

	rs.logger.Info("ReconcileService", "Transient scan moved to durable store", map[string]interface{}{"scan_id": payload.Id})
	msg.Ack()
}
