package bus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	svc, err := NewService(mr.Addr(), "")
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestNilService_AllMethodsAreNoops(t *testing.T) {
	var svc *Service
	assert.NoError(t, svc.PublishRoomUpdate(context.Background(), "room1", "instance-a"))
	assert.NoError(t, svc.Ping(context.Background()))
	assert.NoError(t, svc.Close())
	assert.Nil(t, svc.Client())
}

func TestPublishRoomUpdate_DeliversToSubscriber(t *testing.T) {
	svc := newTestService(t)

	received := make(chan RoomUpdateEvent, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.Subscribe(ctx, func(event RoomUpdateEvent) {
		received <- event
	})

	// give the subscription goroutine a moment to register.
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, svc.PublishRoomUpdate(context.Background(), "room1", "instance-a"))

	select {
	case event := <-received:
		assert.Equal(t, "room1", event.Room)
		assert.Equal(t, "instance-a", event.SenderID)
	case <-time.After(time.Second):
		t.Fatal("did not receive published room update")
	}
}

func TestPing_SucceedsAgainstLiveServer(t *testing.T) {
	svc := newTestService(t)
	assert.NoError(t, svc.Ping(context.Background()))
}
