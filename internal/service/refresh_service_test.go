package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
)

func TestRefreshIsIdempotent(t *testing.T) {
	h := newHarness(t, withoutQuestions())
	ctx := context.Background()
	ticket := h.openTicket(t, alice, domain.CategorySupport)

	require.NoError(t, h.refresher.Refresh(ctx, ticket.ID))
	first, ok := h.fake.Message(ticket.SummaryMessageID)
	require.True(t, ok)

	require.NoError(t, h.refresher.Refresh(ctx, ticket.ID))
	second, ok := h.fake.Message(ticket.SummaryMessageID)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Contains(t, first.Embeds[0].Description, "`1`")
}

func TestRefreshRepostsMissingSummary(t *testing.T) {
	h := newHarness(t, withoutQuestions())
	ctx := context.Background()
	ticket := h.openTicket(t, alice, domain.CategorySupport)

	h.fake.DropMessage(ticket.SummaryMessageID)
	require.NoError(t, h.refresher.Refresh(ctx, ticket.ID))

	got, err := h.store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.NotEqual(t, ticket.SummaryMessageID, got.SummaryMessageID)
	_, ok := h.fake.Message(got.SummaryMessageID)
	assert.True(t, ok)
}

func TestRefreshUnknownTicket(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.refresher.Refresh(context.Background(), "missing"), domain.ErrTicketNotFound)
}

func TestSweepRefreshesEveryTicket(t *testing.T) {
	h := newHarness(t, withoutQuestions())
	ctx := context.Background()
	a := h.openTicket(t, alice, domain.CategorySupport)
	b := h.openTicket(t, bob, domain.CategoryBuy)
	h.fake.DropMessage(b.SummaryMessageID)

	res, err := h.refresher.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Refreshed)
	assert.Zero(t, res.Failed)

	for _, id := range []string{a.ID, b.ID} {
		got, err := h.store.Get(ctx, id)
		require.NoError(t, err)
		msg, ok := h.fake.Message(got.SummaryMessageID)
		require.True(t, ok)
		assert.Contains(t, msg.Embeds[0].Description, "`2`")
	}
	assert.NotNil(t, h.metrics.Snapshot().LastSweep)
}

func TestRefreshLaterHonorsCancellation(t *testing.T) {
	h := newHarness(t, withoutQuestions())
	ticket := h.openTicket(t, alice, domain.CategorySupport)
	h.fake.DropMessage(ticket.SummaryMessageID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	h.refresher.RefreshLater(ctx, ticket.ID, time.Hour)

	got, err := h.store.Get(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.SummaryMessageID, got.SummaryMessageID)
}

func TestRefreshLaterIsTrackedUntilDone(t *testing.T) {
	h := newHarness(t, withoutQuestions())
	ctx := context.Background()
	opened := h.openTicket(t, alice, domain.CategorySupport)
	h.refresher.Wait()
	ticket, err := h.store.Get(ctx, opened.ID)
	require.NoError(t, err)
	h.fake.DropMessage(ticket.SummaryMessageID)

	h.refresher.RefreshLater(ctx, ticket.ID, 20*time.Millisecond)
	h.refresher.Wait()

	got, err := h.store.Get(ctx, ticket.ID)
	require.NoError(t, err)
	assert.NotEqual(t, ticket.SummaryMessageID, got.SummaryMessageID)
}
