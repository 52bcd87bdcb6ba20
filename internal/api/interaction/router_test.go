package interaction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/platform/platformtest"
	"github.com/spec-kit/ticket-bot/internal/service"
	apperrors "github.com/spec-kit/ticket-bot/pkg/util"
)

type stubLifecycle struct {
	selectErr   error
	selectPanic bool
	closeErr    error
	cancelErr   error
	staff       bool
	token       string
	renamed     string
	closedWith  string
	added       string
}

func (s *stubLifecycle) SelectCategory(_ context.Context, _ domain.Actor, value string) (*domain.Ticket, error) {
	if s.selectPanic {
		panic("boom")
	}
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	return &domain.Ticket{ID: "chan-" + value}, nil
}

func (s *stubLifecycle) Rename(_ context.Context, id string, _ domain.Actor, name string) (*domain.Ticket, error) {
	s.renamed = name
	return &domain.Ticket{ID: id, Name: name}, nil
}

func (s *stubLifecycle) RequestClose(context.Context, string, domain.Actor) (string, error) {
	return s.token, nil
}

func (s *stubLifecycle) CancelClose(context.Context, string, domain.Actor) error { return s.cancelErr }

func (s *stubLifecycle) ConfirmClose(_ context.Context, id string, _ domain.Actor, token string) (*domain.ClosedTicket, error) {
	if s.closeErr != nil {
		return nil, s.closeErr
	}
	s.closedWith = token
	return &domain.ClosedTicket{Ticket: domain.Ticket{ID: id, Name: "closed"}}, nil
}

func (s *stubLifecycle) AddParticipant(_ context.Context, _ string, _ domain.Actor, userID string) (*platform.Member, error) {
	s.added = userID
	return &platform.Member{UserID: userID}, nil
}

func (s *stubLifecycle) RemoveParticipant(_ context.Context, _ string, _ domain.Actor, userID string) (*platform.Member, error) {
	return nil, apperrors.NewNotFound("user", domain.ErrUserNotFound, nil)
}

func (s *stubLifecycle) Get(_ context.Context, id string) (*domain.Ticket, error) {
	return &domain.Ticket{ID: id, OwnerUserID: "alice"}, nil
}

func (s *stubLifecycle) IsStaff(domain.Actor) bool { return s.staff }

type stubIntake struct{ got []platform.IncomingMessage }

func (s *stubIntake) Deliver(msg platform.IncomingMessage) bool {
	s.got = append(s.got, msg)
	return true
}

func newRouter(lc *stubLifecycle) (*Router, *observability.Metrics) {
	metrics := observability.NewMetrics()
	presenter := service.NewPresenter(domain.DefaultCatalog(), domain.Settings{})
	return NewRouter(lc, &stubIntake{}, presenter, metrics, zap.NewNop()), metrics
}

func in(channel string) Interaction {
	return Interaction{ID: "i1", Actor: domain.Actor{UserID: "alice"}, ChannelID: channel}
}

func TestPanelCommand(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{})
	resp := &platformtest.Responder{}

	r.HandleCommand(context.Background(), CommandEvent{Interaction: in("c"), Name: CommandPanel}, resp)

	require.Equal(t, 1, resp.Count())
	assert.False(t, resp.Last().Ephemeral)
	require.NotNil(t, resp.Last().Message.Select)
}

func TestUnknownCommandGetsOneErrorResponse(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{})
	resp := &platformtest.Responder{}

	r.HandleCommand(context.Background(), CommandEvent{Interaction: in("c"), Name: "nope"}, resp)

	require.Equal(t, 1, resp.Count())
	assert.True(t, resp.Last().Ephemeral)
	assert.Equal(t, "unknown command", resp.Last().Message.Embeds[0].Description)
}

func TestSelectCategoryDefersThenResponds(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{})
	resp := &platformtest.Responder{}

	r.HandleMenu(context.Background(), MenuEvent{Interaction: in("c"), CustomID: service.ControlSelectCategory, Values: []string{"support"}}, resp)

	assert.True(t, resp.Deferred)
	require.Equal(t, 1, resp.Count())
	assert.Contains(t, resp.Last().Message.Embeds[0].Description, "<#chan-support>")
}

func TestSelectCancelDoesNothing(t *testing.T) {
	lc := &stubLifecycle{selectPanic: true}
	r, _ := newRouter(lc)
	resp := &platformtest.Responder{}

	r.HandleMenu(context.Background(), MenuEvent{Interaction: in("c"), CustomID: service.ControlSelectCategory, Values: []string{service.SelectCancelValue}}, resp)

	require.Equal(t, 1, resp.Count())
	assert.Equal(t, "Selection cancelled", resp.Last().Message.Embeds[0].Title)
}

func TestRejectionIsSurfaced(t *testing.T) {
	lc := &stubLifecycle{selectErr: apperrors.NewValidationError("you already have an open ticket of this kind", domain.ErrGroupLimitExceeded, nil)}
	r, metrics := newRouter(lc)
	resp := &platformtest.Responder{}

	r.HandleMenu(context.Background(), MenuEvent{Interaction: in("c"), CustomID: service.ControlSelectCategory, Values: []string{"support"}}, resp)

	require.Equal(t, 1, resp.Count())
	assert.Equal(t, "you already have an open ticket of this kind", resp.Last().Message.Embeds[0].Description)
	assert.Equal(t, int64(1), metrics.Snapshot().Errors["interaction_menu|"+apperrors.CodeValidation])
}

func TestPanicDegradesToGenericError(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{selectPanic: true})
	resp := &platformtest.Responder{}

	assert.NotPanics(t, func() {
		r.HandleMenu(context.Background(), MenuEvent{Interaction: in("c"), CustomID: service.ControlSelectCategory, Values: []string{"buy"}}, resp)
	})
	require.Equal(t, 1, resp.Count())
	assert.Equal(t, unexpectedErrorText, resp.Last().Message.Embeds[0].Description)
}

func TestUnexpectedErrorIsGeneric(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{selectErr: errors.New("disk on fire")})
	resp := &platformtest.Responder{}

	r.HandleMenu(context.Background(), MenuEvent{Interaction: in("c"), CustomID: service.ControlSelectCategory, Values: []string{"buy"}}, resp)

	require.Equal(t, 1, resp.Count())
	assert.Equal(t, unexpectedErrorText, resp.Last().Message.Embeds[0].Description)
}

func TestTransientErrorAsksToRetry(t *testing.T) {
	err := platform.NewError(platform.KindTransient, "create channel", errors.New("502"))
	r, _ := newRouter(&stubLifecycle{selectErr: err})
	resp := &platformtest.Responder{}

	r.HandleMenu(context.Background(), MenuEvent{Interaction: in("c"), CustomID: service.ControlSelectCategory, Values: []string{"buy"}}, resp)

	assert.Equal(t, retryText, resp.Last().Message.Embeds[0].Description)
}

func TestControlPanelRestrictedToStaff(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{})
	resp := &platformtest.Responder{}
	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlPanel}, resp)
	require.Equal(t, 1, resp.Count())
	assert.Equal(t, "Error", resp.Last().Message.Embeds[0].Title)

	r, _ = newRouter(&stubLifecycle{staff: true})
	resp = &platformtest.Responder{}
	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlPanel}, resp)
	require.Equal(t, 1, resp.Count())
	assert.Len(t, resp.Last().Message.Buttons, 4)
}

func TestRenameOpensFormAndSubmits(t *testing.T) {
	lc := &stubLifecycle{staff: true}
	r, _ := newRouter(lc)

	resp := &platformtest.Responder{}
	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlRename}, resp)
	require.NotNil(t, resp.Last().Form)
	assert.Equal(t, service.FormRename, resp.Last().Form.CustomID)

	resp = &platformtest.Responder{}
	r.HandleForm(context.Background(), FormEvent{
		Interaction: in("t1"),
		CustomID:    service.FormRename,
		Fields:      map[string]string{service.FieldNewName: "vip-order"},
	}, resp)
	require.Equal(t, 1, resp.Count())
	assert.Equal(t, "vip-order", lc.renamed)
}

func TestCloseRequestPostsConfirmation(t *testing.T) {
	lc := &stubLifecycle{staff: true, token: "tok"}
	r, _ := newRouter(lc)
	resp := &platformtest.Responder{}

	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlCloseRequest}, resp)

	require.Equal(t, 1, resp.Count())
	assert.False(t, resp.Last().Ephemeral)
	assert.Equal(t, service.ControlConfirmClose+":tok", resp.Last().Message.Buttons[0].CustomID)

	resp = &platformtest.Responder{}
	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlConfirmClose + ":tok"}, resp)
	assert.Equal(t, "tok", lc.closedWith)
	assert.True(t, resp.Deferred)
	assert.Equal(t, 1, resp.Count())
}

func TestCloseResponseFailureIsNotRetried(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{})
	resp := &platformtest.Responder{Fail: errors.New("unknown channel")}

	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlClose}, resp)

	assert.True(t, resp.Deferred)
	assert.Zero(t, resp.Count())
}

func TestCancelCloseDismissesPrompt(t *testing.T) {
	r, _ := newRouter(&stubLifecycle{})
	resp := &platformtest.Responder{}
	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlCancelClose}, resp)
	assert.True(t, resp.Last().Dismiss)

	r, _ = newRouter(&stubLifecycle{cancelErr: apperrors.NewConflict("no close request is pending", domain.ErrInvalidTransition, nil)})
	resp = &platformtest.Responder{}
	r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlCancelClose}, resp)
	assert.Equal(t, "no close request is pending", resp.Last().Message.Embeds[0].Description)
}

func TestParticipantForms(t *testing.T) {
	lc := &stubLifecycle{staff: true}
	r, _ := newRouter(lc)

	resp := &platformtest.Responder{}
	r.HandleForm(context.Background(), FormEvent{Interaction: in("t1"), CustomID: service.FormAddUser,
		Fields: map[string]string{service.FieldAddUserID: "bob"}}, resp)
	assert.Equal(t, "bob", lc.added)
	assert.Contains(t, resp.Last().Message.Embeds[0].Description, "<@bob>")

	resp = &platformtest.Responder{}
	r.HandleForm(context.Background(), FormEvent{Interaction: in("t1"), CustomID: service.FormRemoveUser,
		Fields: map[string]string{service.FieldRemoveUserID: "ghost"}}, resp)
	require.Equal(t, 1, resp.Count())
	assert.Equal(t, "user not found", resp.Last().Message.Embeds[0].Description)
}

func TestHandleMessageReachesIntake(t *testing.T) {
	intake := &stubIntake{}
	r := NewRouter(&stubLifecycle{}, intake, service.NewPresenter(domain.DefaultCatalog(), domain.Settings{}), nil, zap.NewNop())

	assert.True(t, r.HandleMessage(platform.IncomingMessage{ChannelID: "t1", AuthorID: "alice", Content: "hi"}))
	assert.Len(t, intake.got, 1)
}

func TestPlatformActionsDeferBeforeResponding(t *testing.T) {
	cases := map[string]struct {
		ephemeral bool
		run       func(*Router, platform.Responder)
	}{
		"rename form": {true, func(r *Router, resp platform.Responder) {
			r.HandleForm(context.Background(), FormEvent{Interaction: in("t1"), CustomID: service.FormRename,
				Fields: map[string]string{service.FieldNewName: "vip"}}, resp)
		}},
		"add user form": {false, func(r *Router, resp platform.Responder) {
			r.HandleForm(context.Background(), FormEvent{Interaction: in("t1"), CustomID: service.FormAddUser,
				Fields: map[string]string{service.FieldAddUserID: "bob"}}, resp)
		}},
		"remove user form": {false, func(r *Router, resp platform.Responder) {
			r.HandleForm(context.Background(), FormEvent{Interaction: in("t1"), CustomID: service.FormRemoveUser,
				Fields: map[string]string{service.FieldRemoveUserID: "ghost"}}, resp)
		}},
		"cancel close": {true, func(r *Router, resp platform.Responder) {
			r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlCancelClose}, resp)
		}},
		"close request": {false, func(r *Router, resp platform.Responder) {
			r.HandleButton(context.Background(), ButtonEvent{Interaction: in("t1"), CustomID: service.ControlCloseRequest}, resp)
		}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, _ := newRouter(&stubLifecycle{staff: true, token: "tok"})
			resp := &platformtest.Responder{}

			tc.run(r, resp)

			assert.Equal(t, []string{"defer", "respond"}, resp.Calls)
			assert.Equal(t, tc.ephemeral, resp.DeferredEphemeral)
		})
	}
}
