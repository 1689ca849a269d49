package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesSubscribers(t *testing.T) {
	bus := NewBus(nil)
	first, unsubFirst := bus.Subscribe(TopicBotReady)
	defer unsubFirst()
	second, unsubSecond := bus.Subscribe(TopicBotReady)
	defer unsubSecond()
	other, unsubOther := bus.Subscribe(TopicChatMessage)
	defer unsubOther()

	bus.Publish(TopicBotReady, ReadyDTO{BotName: "gatebot"})

	for _, ch := range []<-chan any{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, "gatebot", got.(ReadyDTO).BotName)
		case <-time.After(time.Second):
			t.Fatal("payload not delivered")
		}
	}

	select {
	case got := <-other:
		t.Fatalf("unexpected payload on other topic: %v", got)
	default:
	}
}

func TestBus_FullSubscriberDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus(nil)
	_, unsub := bus.Subscribe(TopicCommandDispatch)
	defer unsub()

	for i := 0; i < defaultBufferSize+5; i++ {
		bus.Publish(TopicCommandDispatch, i)
	}

	assert.Equal(t, uint64(5), bus.Dropped(TopicCommandDispatch))
}

func TestBus_UnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus(nil)
	ch, unsub := bus.Subscribe(TopicAppError)
	unsub()
	unsub()

	_, ok := <-ch
	assert.False(t, ok)

	assert.NotPanics(t, func() { bus.Publish(TopicAppError, "after unsubscribe") })
}

func TestBus_CloseStopsDelivery(t *testing.T) {
	bus := NewBus(nil)
	ch, unsub := bus.Subscribe(TopicChatMessage)
	bus.Close()
	unsub()

	_, ok := <-ch
	require.False(t, ok)

	late, _ := bus.Subscribe(TopicChatMessage)
	_, ok = <-late
	assert.False(t, ok)
	assert.NotPanics(t, func() { bus.Publish(TopicChatMessage, "ignored") })
}
