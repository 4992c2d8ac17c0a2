package service

import (
	"context"
	"fmt"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/pkg/events"
	pktNats "ecospectre-be/pkg/nats"
	"ecospectre-be/pkg/scan"
)

// FeedService turns SCAN_CREATED events into websocket pushes for the owner's devices.
type FeedService struct {
	subscriber *pktNats.Subscriber
	feed       ScanFeed
	logger     logger.ILogger
}

func NewFeedService(sub *pktNats.Subscriber, feed ScanFeed, log logger.ILogger) *FeedService {
	return &FeedService{subscriber: sub, feed: feed, logger: log}
}

func (s *FeedService) Start() {
	err := s.subscriber.Subscribe(pktNats.Subject(events.ScanCreated), "scan-feed-worker", s.HandleEvent)
	if err != nil {
		s.logger.Error("FeedService", "Failed to start scan feed subscriber", map[string]interface{}{"error": err})
		return
	}
	s.logger.Info("FeedService", "Scan feed listening", nil)
}

// HandleEvent is exported for tests; it never fails so malformed events are not redelivered.
func (s *FeedService) HandleEvent(ctx context.Context, event events.Event) error {
	data := event.Payload()

	authenticated, _ := data["authenticated"].(bool)
	userID, _ := data["user_id"].(string)
	if !authenticated || userID == "" {
		return nil
	}

	msg := dto.ScanFeedMessage{
		Id:      fmt.Sprint(data["scan_id"]),
		Action:  scan.Action(fmt.Sprint(data["action"])),
		Storage: fmt.Sprint(data["storage"]),
	}
	if ts, ok := data["timestamp"].(float64); ok {
		msg.Timestamp = int64(ts)
	}
	if score, ok := data["score"].(float64); ok {
		msg.Score = score
	}

	s.feed.Send(userID, FeedScanCreated, msg)
	return nil
}
