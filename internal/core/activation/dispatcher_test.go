package activation

import (
	"errors"
	"sync"
	"testing"

	"eyenav/internal/core/model"
	"eyenav/internal/core/target"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newElement(id string, onActive func() error) *target.Element {
	return target.NewElement(id, model.Rect{Right: 1, Bottom: 1}, onActive)
}

func TestDispatchActivatesAndNotifiesOnce(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	clicks := 0
	var seen []string
	dispatcher.AddObserver(ObserverFunc(func(activation Activation) {
		seen = append(seen, activation.Target.ID())
	}))

	err := dispatcher.Dispatch(newElement("ok", func() error {
		clicks++
		return nil
	}))

	require.NoError(t, err)
	assert.Equal(t, 1, clicks)
	assert.Equal(t, []string{"ok"}, seen)
}

func TestDispatchReportsTargetFailure(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	failures := dispatcher.SubscribeFailures(1)
	notified := false
	dispatcher.AddObserver(ObserverFunc(func(Activation) { notified = true }))
	boom := errors.New("boom")

	err := dispatcher.Dispatch(newElement("bad", func() error { return boom }))

	var dispatchErr *DispatchError
	require.True(t, errors.As(err, &dispatchErr))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "bad", dispatchErr.Target.ID())
	assert.False(t, notified, "observers only hear about successful activations")

	select {
	case failure := <-failures:
		assert.Equal(t, "bad", failure.Target.ID())
	default:
		t.Fatal("expected failure on subscription channel")
	}
}

func TestDispatchRecoversActivationPanic(t *testing.T) {
	dispatcher := NewDispatcher(nil)

	var err error
	assert.NotPanics(t, func() {
		err = dispatcher.Dispatch(newElement("panicky", func() error { panic("handler exploded") }))
	})
	var dispatchErr *DispatchError
	require.True(t, errors.As(err, &dispatchErr))
	assert.Contains(t, dispatchErr.Error(), "handler exploded")
}

func TestDispatchNilTarget(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	err := dispatcher.Dispatch(nil)
	assert.ErrorIs(t, err, ErrNilTarget)
}

func TestObserverPanicDoesNotPropagate(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	after := 0
	dispatcher.AddObserver(ObserverFunc(func(Activation) { panic("observer") }))
	dispatcher.AddObserver(ObserverFunc(func(Activation) { after++ }))

	assert.NotPanics(t, func() {
		require.NoError(t, dispatcher.Dispatch(newElement("ok", nil)))
	})
	assert.Equal(t, 1, after)
}

func TestSlowFailureSubscriberDoesNotBlock(t *testing.T) {
	dispatcher := NewDispatcher(nil)
	failures := dispatcher.SubscribeFailures(1)
	failing := newElement("bad", func() error { return errors.New("nope") })

	for i := 0; i < 3; i++ {
		_ = dispatcher.Dispatch(failing)
	}
	dispatcher.Close()

	count := 0
	for range failures {
		count++
	}
	assert.Equal(t, 1, count)
}

func TestCloseDuringFailingDispatchDoesNotPanic(t *testing.T) {
	failing := target.NewElement("bad", model.Rect{}, func() error { return errors.New("nope") })
	for round := 0; round < 200; round++ {
		dispatcher := NewDispatcher(nil)
		for i := 0; i < 4; i++ {
			dispatcher.SubscribeFailures(1)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				assert.Error(t, dispatcher.Dispatch(failing))
			}
		}()
		go func() {
			defer wg.Done()
			dispatcher.Close()
		}()
		wg.Wait()
	}
}
