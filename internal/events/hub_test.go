package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishReachesOnlyThatWork(t *testing.T) {
	hub := NewHub(4, zap.NewNop())
	workA, workB := uuid.New(), uuid.New()

	subA := hub.Subscribe(workA)
	subB := hub.Subscribe(workB)
	defer subA.Close()
	defer subB.Close()

	hub.Publish(Event{Type: ChapterCreated, WorkID: workA, At: time.Now()})

	select {
	case ev := <-subA.Events():
		assert.Equal(t, ChapterCreated, ev.Type)
		assert.Equal(t, workA, ev.WorkID)
	case <-time.After(time.Second):
		t.Fatal("subscriber A did not receive the event")
	}

	select {
	case ev := <-subB.Events():
		t.Fatalf("subscriber B received %v", ev)
	default:
	}
}

func TestSlowSubscriberIsDropped(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	work := uuid.New()
	sub := hub.Subscribe(work)

	hub.Publish(Event{Type: WorkUpdated, WorkID: work})
	hub.Publish(Event{Type: WorkUpdated, WorkID: work})

	assert.Equal(t, 0, hub.Subscribers(work))

	// The buffered event is still delivered, then the channel closes.
	_, ok := <-sub.Events()
	require.True(t, ok)
	_, ok = <-sub.Events()
	assert.False(t, ok)

	// Closing an already dropped subscription is harmless.
	sub.Close()
}

func TestCloseRemovesRoom(t *testing.T) {
	hub := NewHub(1, zap.NewNop())
	work := uuid.New()

	sub := hub.Subscribe(work)
	assert.Equal(t, 1, hub.Subscribers(work))
	sub.Close()
	sub.Close()
	assert.Equal(t, 0, hub.Subscribers(work))
}
