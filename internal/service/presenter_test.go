package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

func TestSummaryListsAnsweredQuestionsInCatalogOrder(t *testing.T) {
	p := NewPresenter(domain.DefaultCatalog(), testSettings())
	ticket := &domain.Ticket{
		ID:          "1",
		OwnerUserID: "alice",
		Category:    domain.CategoryBuy,
		Name:        "Netflix-2-PayPal",
		Answers:     map[string]string{"Payment Method": "PayPal", "Product": "Netflix"},
		Status:      domain.TicketStatusOpen,
	}

	msg := p.Summary(ticket, 3)
	require.Len(t, msg.Embeds, 1)
	embed := msg.Embeds[0]
	assert.Equal(t, "Netflix-2-PayPal", embed.Title)
	assert.Contains(t, embed.Description, "<@alice>")
	assert.Contains(t, embed.Description, "`3`")
	require.Len(t, embed.Fields, 2)
	assert.Equal(t, "Netflix", embed.Fields[0].Value)
	assert.Equal(t, "PayPal", embed.Fields[1].Value)

	require.Len(t, msg.Buttons, 2)
	assert.Equal(t, ControlClose, msg.Buttons[0].CustomID)
	assert.Equal(t, ControlPanel, msg.Buttons[1].CustomID)

	assert.Equal(t, msg, p.Summary(ticket, 3))
}

func TestSummaryBeforeFirstCount(t *testing.T) {
	p := NewPresenter(domain.DefaultCatalog(), testSettings())
	msg := p.Summary(&domain.Ticket{OwnerUserID: "a", Category: domain.CategorySupport, Status: domain.TicketStatusCreated}, openCountPending)
	assert.Contains(t, msg.Embeds[0].Description, "Processing...")
}

func TestSummaryOfClosedTicketHasNoControls(t *testing.T) {
	p := NewPresenter(domain.DefaultCatalog(), testSettings())
	msg := p.Summary(&domain.Ticket{Category: domain.CategorySupport, Status: domain.TicketStatusClosed}, 0)
	assert.Empty(t, msg.Buttons)
}

func TestPanelOffersEveryCategoryAndCancel(t *testing.T) {
	p := NewPresenter(domain.DefaultCatalog(), testSettings())
	msg := p.Panel()
	require.NotNil(t, msg.Select)
	assert.Equal(t, ControlSelectCategory, msg.Select.CustomID)

	var values []string
	for _, o := range msg.Select.Options {
		values = append(values, o.Value)
	}
	assert.Equal(t, []string{"buy", "support", "replace", "exchange", SelectCancelValue}, values)
}

func TestCloseConfirmationCarriesToken(t *testing.T) {
	p := NewPresenter(domain.DefaultCatalog(), testSettings())
	msg := p.CloseConfirmation(&domain.Ticket{OwnerUserID: "alice"}, "tok")
	require.Len(t, msg.Buttons, 2)
	assert.Equal(t, ControlConfirmClose+":tok", msg.Buttons[0].CustomID)
	assert.Equal(t, ControlCancelClose, msg.Buttons[1].CustomID)
	assert.Contains(t, msg.Embeds[0].Description, platform.Mention("alice"))
}

func TestClosureNoticeFields(t *testing.T) {
	p := NewPresenter(domain.DefaultCatalog(), testSettings())
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	msg := p.ClosureNotice(domain.ClosedTicket{
		Ticket:   domain.Ticket{Name: "vip-order", OwnerUserID: "alice", OwnerDisplayName: "Alice", CreatedAt: created},
		ClosedBy: domain.Actor{UserID: "carol"},
		ClosedAt: created.Add(time.Hour),
	})
	embed := msg.Embeds[0]
	assert.Equal(t, "Alice", embed.AuthorName)
	names := map[string]string{}
	for _, f := range embed.Fields {
		names[f.Name] = f.Value
	}
	assert.Equal(t, "vip-order", names["Ticket name"])
	assert.Equal(t, "2026-05-01 10:00 UTC", names["Created"])
	assert.Equal(t, "2026-05-01 11:00 UTC", names["Closed"])
	assert.Equal(t, "<@carol>", names["Closed by"])
}
