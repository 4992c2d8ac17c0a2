// FILE: internal/service/scan_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/internal/repository/unitofwork"
	"ecospectre-be/pkg/events"
	pktNats "ecospectre-be/pkg/nats"
	"ecospectre-be/pkg/scan"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 100

	// TransientTopic announces records that only reached the transient store.
	TransientTopic = "scans.transient"

	FeedScanCreated = "scan_created"
)

type IScanService interface {
	Create(ctx context.Context, identity entity.Identity, req *dto.CreateScanRequest, idempotencyKey string) (*entity.ScanReceipt, error)
	List(ctx context.Context, identity entity.Identity, query dto.ListScansQuery) ([]dto.ScanResponse, error)
	StorageMode() entity.StorageKind
}

// ScanFeed pushes live updates to a user's connected devices. Implemented by the websocket hub.
type ScanFeed interface {
	Send(userID string, messageType string, data interface{})
}

type scanService struct {
	uowFactory     unitofwork.RepositoryFactory
	transient      contract.ScanRepository
	idempotency    IdempotencyStore
	eventPublisher *pktNats.Publisher
	feed           ScanFeed
	bus            message.Publisher
	logger         logger.ILogger
	listLimit      int
	now            func() time.Time
}

// NewScanService wires the ingestion service. eventPublisher, feed and bus may be nil.
func NewScanService(
	uowFactory unitofwork.RepositoryFactory,
	transient contract.ScanRepository,
	idempotency IdempotencyStore,
	eventPublisher *pktNats.Publisher,
	feed ScanFeed,
	bus message.Publisher,
	log logger.ILogger,
	listLimit int,
) IScanService {
	if listLimit <= 0 {
		listLimit = DefaultListLimit
	}
	return &scanService{
		uowFactory:     uowFactory,
		transient:      transient,
		idempotency:    idempotency,
		eventPublisher: eventPublisher,
		feed:           feed,
		bus:            bus,
		logger:         log,
		listLimit:      listLimit,
		now:            time.Now,
	}
}

func (s *scanService) StorageMode() entity.StorageKind {
	if s.uowFactory.DurableReachable() {
		return entity.StorageDurable
	}
	return entity.StorageMemory
}

func (s *scanService) Create(ctx context.Context, identity entity.Identity, req *dto.CreateScanRequest, idempotencyKey string) (*entity.ScanReceipt, error) {
	if err := checkCreateRequest(req); err != nil {
		return nil, err
	}

	claimed := ""
	if req.UserId != nil {
		claimed = strings.TrimSpace(*req.UserId)
	}
	owner := identity.ResolveOwner(claimed)
	idempotencyKey = strings.TrimSpace(idempotencyKey)

	if idempotencyKey != "" {
		if receipt := s.findPrevious(ctx, owner.UserID, idempotencyKey); receipt != nil {
			if receipt.Storage == entity.StorageMemory && s.uowFactory.DurableReachable() {
				receipt = s.promote(ctx, owner.UserID, idempotencyKey, receipt, req)
			}
			s.logger.Info("ScanService", "Duplicate scan submission, returning original receipt", map[string]interface{}{
				"scan_id": receipt.Id.String(),
				"user_id": owner.UserID,
			})
			return receipt, nil
		}
	}

	record := s.toEntity(owner.UserID, req, idempotencyKey)

	storage := entity.StorageDurable
	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	switch {
	case err == nil:
		if err := uow.ScanRepository().Create(ctx, record); err != nil {
			s.logger.Error("ScanService", "Durable write failed", map[string]interface{}{"error": err})
			s.uowFactory.ReportFailure(err)
			return nil, fmt.Errorf("%w: %v", scan.ErrServerFault, err)
		}
	case errors.Is(err, unitofwork.ErrDurableUnavailable):
		storage = entity.StorageMemory
		if err := s.transient.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("%w: %v", scan.ErrServerFault, err)
		}
		s.logger.Warn("ScanService", "Durable store unreachable, scan kept in transient store", map[string]interface{}{
			"scan_id": record.Id.String(),
		})
		s.announceTransient(record)
	default:
		return nil, err
	}

	receipt := &entity.ScanReceipt{Id: record.Id, Storage: storage}

	if idempotencyKey != "" {
		if err := s.idempotency.Remember(ctx, owner.UserID, idempotencyKey, *receipt); err != nil {
			s.logger.Warn("ScanService", "Failed to remember idempotency key", map[string]interface{}{"error": err})
		}
	}

	s.publishCreated(ctx, owner, record, storage)
	return receipt, nil
}

// findPrevious checks the fast store first and the durable store second.
func (s *scanService) findPrevious(ctx context.Context, owner, key string) *entity.ScanReceipt {
	if receipt, err := s.idempotency.Lookup(ctx, owner, key); err == nil && receipt != nil {
		return receipt
	}

	if uow, err := s.uowFactory.NewUnitOfWork(ctx); err == nil {
		if existing, err := uow.ScanRepository().FindByIdempotencyKey(ctx, owner, key); err == nil && existing != nil {
			return &entity.ScanReceipt{Id: existing.Id, Storage: entity.StorageDurable}
		}
	}
	if existing, err := s.transient.FindByIdempotencyKey(ctx, owner, key); err == nil && existing != nil {
		return &entity.ScanReceipt{Id: existing.Id, Storage: entity.StorageMemory}
	}
	return nil
}

// promote moves a memory-only scan into the durable store when its submitter retries
// after Postgres came back. On any failure the memory receipt is returned unchanged.
func (s *scanService) promote(ctx context.Context, owner, key string, prev *entity.ScanReceipt, req *dto.CreateScanRequest) *entity.ScanReceipt {
	uow, err := s.uowFactory.NewUnitOfWork(ctx)
	if err != nil {
		return prev
	}
	repo := uow.ScanRepository()

	existing, err := repo.FindByID(ctx, prev.Id)
	if err != nil {
		s.uowFactory.ReportFailure(err)
		return prev
	}
	if existing == nil {
		record, _ := s.transient.FindByID(ctx, prev.Id)
		if record == nil {
			// Evicted or lost on restart; the retried request carries the same content.
			record = s.toEntity(owner, req, key)
			record.Id = prev.Id
		}
		if err := repo.Create(ctx, record); err != nil {
			s.uowFactory.ReportFailure(err)
			s.logger.Warn("ScanService", "Failed to promote transient scan", map[string]interface{}{
				"scan_id": prev.Id.String(),
				"error":   err,
			})
			return prev
		}
	}

	if err := s.transient.Delete(ctx, prev.Id); err != nil {
		s.logger.Warn("ScanService", "Failed to drop promoted scan from transient store", map[string]interface{}{"error": err})
	}
	promoted := entity.ScanReceipt{Id: prev.Id, Storage: entity.StorageDurable}
	if err := s.idempotency.Replace(ctx, owner, key, promoted); err != nil {
		s.logger.Warn("ScanService", "Failed to update idempotency receipt", map[string]interface{}{"error": err})
	}
	s.logger.Info("ScanService", "Transient scan promoted to durable store", map[string]interface{}{"scan_id": prev.Id.String()})
	return &promoted
}

// checkCreateRequest guards callers that skipped request validation.
func checkCreateRequest(req *dto.CreateScanRequest) error {
	if req == nil {
		return &scan.ValidationError{Missing: []string{"score", "breakdown", "detected_labels", "packaging_type", "material_hints", "action"}}
	}
	verr := &scan.ValidationError{}
	if req.Score == nil {
		verr.Missing = append(verr.Missing, "score")
	} else if !scan.ValidateScore(*req.Score) {
		verr.Invalid = append(verr.Invalid, "score")
	}
	if req.Breakdown == nil {
		verr.Missing = append(verr.Missing, "breakdown")
	}
	if !scan.Action(req.Action).Valid() {
		if req.Action == "" {
			verr.Missing = append(verr.Missing, "action")
		} else {
			verr.Invalid = append(verr.Invalid, "action")
		}
	}
	return verr.OrNil()
}

func (s *scanService) toEntity(owner string, req *dto.CreateScanRequest, idempotencyKey string) *entity.Scan {
	labels := req.DetectedLabels
	if labels == nil {
		labels = []string{}
	}
	record := &entity.Scan{
		Id:             uuid.New(),
		UserId:         owner,
		Timestamp:      scan.NowMillis(s.now()),
		Score:          *req.Score,
		Breakdown:      req.Breakdown.ToBreakdown(),
		DetectedLabels: labels,
		PackagingType:  req.PackagingType,
		MaterialHints:  req.MaterialHints,
		OcrText:        req.OcrText,
		BrandText:      req.BrandText,
		ImageThumb:     req.ImageThumb,
		Action:         scan.Action(req.Action),
		CreatedAt:      s.now(),
	}
	if idempotencyKey != "" {
		record.IdempotencyKey = &idempotencyKey
	}
	return record
}

func (s *scanService) announceTransient(record *entity.Scan) {
	if s.bus == nil {
		return
	}
	payload, _ := json.Marshal(dto.TransientScanMessage{Id: record.Id.String()})
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.bus.Publish(TransientTopic, msg); err != nil {
		s.logger.Warn("ScanService", "Failed to announce transient scan", map[string]interface{}{"error": err})
	}
}

// publishCreated emits SCAN_CREATED on NATS, or pushes to the feed directly when NATS is absent.
func (s *scanService) publishCreated(ctx context.Context, owner entity.Identity, record *entity.Scan, storage entity.StorageKind) {
	feedMsg := dto.ScanFeedMessage{
		Id:        record.Id.String(),
		Timestamp: record.Timestamp,
		Action:    record.Action,
		Score:     record.Score,
		Storage:   string(storage),
	}

	if s.eventPublisher != nil {
		err := s.eventPublisher.Publish(ctx, events.BaseEvent{
			Type: events.ScanCreated,
			Data: map[string]interface{}{
				"scan_id":       feedMsg.Id,
				"user_id":       owner.UserID,
				"authenticated": owner.IsAuthenticated(),
				"timestamp":     feedMsg.Timestamp,
				"action":        string(feedMsg.Action),
				"score":         feedMsg.Score,
				"storage":       feedMsg.Storage,
			},
			OccurredAt: s.now(),
		})
		if err == nil {
			return
		}
		s.logger.Warn("ScanService", "Failed to publish SCAN_CREATED", map[string]interface{}{"error": err})
	}

	if s.feed != nil && owner.IsAuthenticated() {
		s.feed.Send(owner.UserID, FeedScanCreated, feedMsg)
	}
}

func (s *scanService) List(ctx context.Context, identity entity.Identity, q dto.ListScansQuery) ([]dto.ScanResponse, error) {
	query := contract.ScanQuery{Limit: s.listLimit}
	if identity.IsAuthenticated() {
		query.UserID = identity.UserID
	}

	verr := &scan.ValidationError{}
	if q.StartDate != "" {
		start, err := scan.ParseDate(q.StartDate)
		if err != nil {
			verr.Invalid = append(verr.Invalid, "startDate")
		}
		query.Start = &start
	}
	if q.EndDate != "" {
		end, err := scan.ParseDate(q.EndDate)
		if err != nil {
			verr.Invalid = append(verr.Invalid, "endDate")
		}
		query.End = &end
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	repo := s.transient
	if uow, err := s.uowFactory.NewUnitOfWork(ctx); err == nil {
		repo = uow.ScanRepository()
	}

	scans, err := repo.FindAll(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", scan.ErrServerFault, err)
	}

	out := make([]dto.ScanResponse, 0, len(scans))
	for _, sc := range scans {
		out = append(out, ToScanResponse(sc))
	}
	return out, nil
}

// ToScanResponse renders a stored scan in the shape clients display.
func ToScanResponse(sc *entity.Scan) dto.ScanResponse {
	labels := sc.DetectedLabels
	if labels == nil {
		labels = []string{}
	}
	return dto.ScanResponse{
		Id:        sc.Id.String(),
		Timestamp: sc.Timestamp,
		Score: dto.ScanScoreResponse{
			Score:      sc.Score,
			Breakdown:  sc.Breakdown,
			TopFactors: []scan.TopFactor{},
			Suggestion: "",
			Disposal:   "",
		},
		Context: dto.ScanContextResponse{
			DetectedLabels: labels,
			PackagingType:  sc.PackagingType,
			MaterialHints:  sc.MaterialHints,
			OcrText:        sc.OcrText,
			BrandText:      sc.BrandText,
			ImageThumb:     sc.ImageThumb,
			Image:          sc.ImageThumb,
			UserNote:       "",
		},
		Action: sc.Action,
	}
}
