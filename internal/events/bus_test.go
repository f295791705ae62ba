package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribe_ExactChannelMatch(t *testing.T) {
	b := New()
	_, ch := b.Subscribe(ChannelPlayerConnected)

	b.Publish(ChannelPlayerConnected, PlayerLifecyclePayload{PlayerMAC: "aa"})

	select {
	case evt := <-ch:
		assert.Equal(t, ChannelPlayerConnected, evt.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestSubscribe_WildcardMatchesOneSegment(t *testing.T) {
	b := New()
	_, ch := b.Subscribe("player.*")

	b.Publish(ChannelPlayerStatus, nil)
	b.Publish(ChannelLibraryScanAll, nil) // "library.scan.*" must not match "player.*"

	select {
	case evt := <-ch:
		assert.Equal(t, ChannelPlayerStatus, evt.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected one event")
	}

	select {
	case evt := <-ch:
		t.Fatalf("unexpected second event: %+v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSubscribe_StarAloneMatchesEverything(t *testing.T) {
	b := New()
	_, ch := b.Subscribe("*")

	b.Publish("anything.goes", nil)

	select {
	case evt := <-ch:
		assert.Equal(t, "anything.goes", evt.Channel)
	case <-time.After(time.Second):
		t.Fatal("expected an event")
	}
}

func TestUnsubscribe_ClosesChannel(t *testing.T) {
	b := New()
	id, ch := b.Subscribe("*")
	require.Equal(t, 1, b.SubscriberCount())

	b.Unsubscribe(id)
	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-ch
	assert.False(t, ok, "channel must be closed after unsubscribe")
}

func TestPublish_DropsForFullSlowSubscriber(t *testing.T) {
	b := New()
	_, ch := b.Subscribe("*")

	for i := 0; i < subBufferSize+5; i++ {
		b.Publish("flood", nil)
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			assert.Equal(t, subBufferSize, count, "excess events beyond the buffer must be dropped, not block the publisher")
			return
		}
	}
}
