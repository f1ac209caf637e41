package eventbus_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/helmline/pms/pkg/eventbus"
)

type submittedEvent struct {
	ID string
}

func TestPublish_CallsMatchingSubscriber(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)

	var got []string
	bus.Subscribe(func(ev submittedEvent) {
		got = append(got, ev.ID)
	})

	bus.Publish(submittedEvent{ID: "cr-1"})
	bus.Publish(submittedEvent{ID: "cr-2"})

	require.Equal(t, []string{"cr-1", "cr-2"}, got)
}

func TestPublish_SkipsNonMatchingSubscriber(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)

	called := false
	bus.Subscribe(func(n int) { called = true })

	bus.Publish(submittedEvent{ID: "cr-1"})
	require.False(t, called)
}

func TestPublish_RecoversFromPanickingHandler(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)

	bus.Subscribe(func(ev submittedEvent) { panic("boom") })

	require.NotPanics(t, func() {
		bus.Publish(submittedEvent{ID: "cr-1"})
	})
}

func TestUnsubscribe_RemovesHandler(t *testing.T) {
	bus := eventbus.NewEventPublisher(nil)

	handler := func(ev submittedEvent) {}
	bus.Subscribe(handler)
	require.Equal(t, 1, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	require.Equal(t, 0, bus.SubscribersCount())
}

func TestMatchSignature_InterfaceParam(t *testing.T) {
	handler := func(err error) {}
	require.True(t, eventbus.MatchSignature(handler, []interface{}{assertError{}}))
	require.False(t, eventbus.MatchSignature(handler, []interface{}{42}))
}

type assertError struct{}

func (assertError) Error() string { return "assert" }
