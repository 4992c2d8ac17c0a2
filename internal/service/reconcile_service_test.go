package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ecospectre-be/internal/dto"
	"ecospectre-be/internal/entity"
	"ecospectre-be/internal/pkg/logger"
	"ecospectre-be/internal/repository/contract"
	"ecospectre-be/internal/repository/memory"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transientMessage(t *testing.T, id string) *message.Message {
	t.Helper()
	payload, err := json.Marshal(dto.TransientScanMessage{Id: id})
	require.NoError(t, err)
	return message.NewMessage(watermill.NewUUID(), payload)
}

func TestReconcileMovesTransientScanToDurable(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory(true)
	transient := memory.NewScanRepository(0)
	seedScan(t, transient, "u", 42)
	all, _ := transient.FindAll(ctx, contract.ScanQuery{})
	id := all[0].Id

	rs := NewReconcileService(nil, factory, transient, logger.NewNopLogger()).(*reconcileService)
	msg := transientMessage(t, id.String())
	rs.processMessage(ctx, msg)

	assertClosed(t, msg.Acked())
	stored, err := factory.scans.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, int64(42), stored.Timestamp)
	assert.Equal(t, 0, transient.Count())
}

func TestReconcileNacksWhileDurableIsDown(t *testing.T) {
	ctx := context.Background()
	factory := newFakeFactory(false)
	transient := memory.NewScanRepository(0)
	seedScan(t, transient, "u", 42)
	all, _ := transient.FindAll(ctx, contract.ScanQuery{})

	rs := NewReconcileService(nil, factory, transient, logger.NewNopLogger()).(*reconcileService)
	rs.retryDelay = time.Millisecond
	msg := transientMessage(t, all[0].Id.String())
	rs.processMessage(ctx, msg)

	assertClosed(t, msg.Nacked())
	assert.Equal(t, 1, transient.Count())
}

func TestReconcileAcksUnknownOrMalformedMessages(t *testing.T) {
	rs := NewReconcileService(nil, newFakeFactory(true), memory.NewScanRepository(0), logger.NewNopLogger()).(*reconcileService)

	gone := transientMessage(t, "2f0b8c61-1d7e-4a52-b0a4-3f6f6b1e9d10")
	rs.processMessage(context.Background(), gone)
	assertClosed(t, gone.Acked())

	garbage := message.NewMessage(watermill.NewUUID(), []byte("{"))
	rs.processMessage(context.Background(), garbage)
	assertClosed(t, garbage.Acked())
}

func TestReconcileConsumesFromBus(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer bus.Close()

	factory := newFakeFactory(false)
	transient := memory.NewScanRepository(0)
	svc := NewScanService(factory, transient, NewCacheIdempotencyStore(time.Hour), nil, nil, bus, logger.NewNopLogger(), 0)

	rs := NewReconcileService(bus, factory, transient, logger.NewNopLogger())
	// Consumer waits on the unreachable store until the probe flips.
	rs.(*reconcileService).retryDelay = 10 * time.Millisecond
	require.NoError(t, rs.Consume(ctx))

	receipt, err := svc.Create(ctx, entity.Guest(), validRequest(), "")
	require.NoError(t, err)
	factory.reachable.Store(true)

	require.Eventually(t, func() bool {
		stored, _ := factory.scans.FindByID(ctx, receipt.Id)
		return stored != nil && transient.Count() == 0
	}, 10*time.Second, 20*time.Millisecond)
}

func assertClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("expected channel to be closed")
	}
}
