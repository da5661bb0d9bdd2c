package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHub_PublishReachesOnlyOwner(t *testing.T) {
	hub := NewHub(4)

	mine, unsubMine := hub.Subscribe(1)
	defer unsubMine()
	other, unsubOther := hub.Subscribe(2)
	defer unsubOther()

	hub.Publish(Event{Kind: ChildCreated, GuardianID: 1, ChildID: 10})

	select {
	case ev := <-mine:
		assert.Equal(t, ChildCreated, ev.Kind)
		assert.Equal(t, int64(10), ev.ChildID)
	default:
		t.Fatal("subscriber did not receive event")
	}

	select {
	case ev := <-other:
		t.Fatalf("unexpected event for other guardian: %+v", ev)
	default:
	}
}

func TestHub_UnsubscribeClosesAndIsIdempotent(t *testing.T) {
	hub := NewHub(1)

	ch, unsub := hub.Subscribe(5)
	require.Equal(t, 1, hub.Subscribers(5))

	unsub()
	unsub()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0, hub.Subscribers(5))

	hub.Publish(Event{Kind: ChildDeleted, GuardianID: 5})
}

func TestHub_SlowSubscriberDoesNotBlock(t *testing.T) {
	hub := NewHub(1)
	ch, unsub := hub.Subscribe(3)
	defer unsub()

	for i := 0; i < 5; i++ {
		hub.Publish(Event{Kind: ChildUpdated, GuardianID: 3, ChildID: int64(i)})
	}

	ev := <-ch
	assert.Equal(t, int64(0), ev.ChildID)
}
