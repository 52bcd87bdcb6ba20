package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatcherDeliversToAllHandlers(t *testing.T) {
	d := NewInMemoryDispatcher()
	var got []string
	d.Subscribe(EventTicketRenamed, func(_ context.Context, e Event) error {
		got = append(got, "first:"+e.TicketID)
		return errors.New("boom")
	})
	d.Subscribe(EventTicketRenamed, func(_ context.Context, e Event) error {
		got = append(got, "second:"+e.TicketID)
		return nil
	})
	d.Subscribe(EventTicketClosed, func(_ context.Context, e Event) error {
		got = append(got, "closed")
		return nil
	})

	err := d.Publish(context.Background(), Event{Type: EventTicketRenamed, TicketID: "42"})

	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"first:42", "second:42"}, got)
}

func TestDispatcherWithoutListeners(t *testing.T) {
	d := NewInMemoryDispatcher()
	assert.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
}
