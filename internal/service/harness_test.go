package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/events"
	"github.com/spec-kit/ticket-bot/internal/lock"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/platform/platformtest"
	"github.com/spec-kit/ticket-bot/internal/repository"
)

const (
	archiveChannel = "archive"
	staffRole      = "staff"
)

var (
	alice = domain.Actor{UserID: "alice", DisplayName: "alice"}
	bob   = domain.Actor{UserID: "bob", DisplayName: "bob"}
	staff = domain.Actor{UserID: "carol", DisplayName: "carol", RoleIDs: []string{staffRole}}
)

type harness struct {
	fake      *platformtest.Fake
	store     *repository.FileStore
	presenter *Presenter
	refresher *RefreshService
	intake    *IntakeCollector
	archiver  *ArchiveService
	audit     *AuditService
	metrics   *observability.Metrics
	svc       *LifecycleService
	settings  domain.Settings
	storePath string
}

type harnessOptions struct {
	catalog       domain.Catalog
	intakeTimeout time.Duration
	archiveDir    string
	refreshDelay  time.Duration
}

func testSettings() domain.Settings {
	return domain.Settings{
		CategoryGroups: map[domain.Category]string{
			domain.CategoryBuy:      "g-buy",
			domain.CategorySupport:  "g-support",
			domain.CategoryReplace:  "g-replace",
			domain.CategoryExchange: "g-exchange",
		},
		TranscriptChannelID: archiveChannel,
		TeamRoleID:          staffRole,
		BannerURL:           "https://example.com/banner.png",
	}
}

func newHarness(t *testing.T, opts ...func(*harnessOptions)) *harness {
	t.Helper()
	o := harnessOptions{catalog: domain.DefaultCatalog(), intakeTimeout: 2 * time.Second}
	for _, opt := range opts {
		opt(&o)
	}

	logger := zap.NewNop()
	fake := platformtest.NewFake()
	fake.AddChannel(archiveChannel, "transcripts")
	for _, a := range []domain.Actor{alice, bob, staff} {
		fake.AddMember(platform.Member{UserID: a.UserID, DisplayName: a.DisplayName, RoleIDs: a.RoleIDs})
	}

	settings := testSettings()
	storePath := filepath.Join(t.TempDir(), "data", "ticket.json")
	store := repository.NewFileStore(storePath, logger)
	metrics := observability.NewMetrics()
	locker := lock.NewKeyedMutex()
	presenter := NewPresenter(o.catalog, settings)
	refresher := NewRefreshService(RefreshDependencies{
		Store: store, Platform: fake, Presenter: presenter, Locker: locker, Metrics: metrics, Logger: logger,
	})
	intake := NewIntakeCollector(fake, presenter, o.intakeTimeout, logger)
	archiver, err := NewArchiveService(ArchiveDependencies{
		Platform: fake, Presenter: presenter, Settings: settings, Dir: o.archiveDir, Metrics: metrics, Logger: logger,
	})
	require.NoError(t, err)
	dispatcher := events.NewInMemoryDispatcher()
	audit := NewAuditService(dispatcher, logger, 0)
	audit.RegisterHandlers()

	svc := NewLifecycleService(LifecycleDependencies{
		Store:      store,
		Platform:   fake,
		Presenter:  presenter,
		Refresher:  refresher,
		Intake:     intake,
		Archiver:   archiver,
		Dispatcher: dispatcher,
		Locker:     locker,
		Catalog:    o.catalog,
		Settings:   settings,
		Metrics:    metrics,
		Logger:     logger,

		InitialRefreshDelay: o.refreshDelay,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = svc.Shutdown(ctx)
	})

	return &harness{
		fake: fake, store: store, presenter: presenter, refresher: refresher, intake: intake,
		archiver: archiver, audit: audit, metrics: metrics, svc: svc, settings: settings,
		storePath: storePath,
	}
}

func withTimeout(d time.Duration) func(*harnessOptions) {
	return func(o *harnessOptions) { o.intakeTimeout = d }
}

// withoutQuestions skips intake for every category.
func withoutQuestions() func(*harnessOptions) {
	return func(o *harnessOptions) {
		empty := map[domain.Category][]domain.Question{}
		for _, c := range domain.Categories {
			empty[c] = []domain.Question{}
		}
		o.catalog = domain.DefaultCatalog().WithQuestions(empty)
	}
}

func withArchiveDir(dir string) func(*harnessOptions) {
	return func(o *harnessOptions) { o.archiveDir = dir }
}

func withRefreshDelay(d time.Duration) func(*harnessOptions) {
	return func(o *harnessOptions) { o.refreshDelay = d }
}

// breakSaves replaces the store directory with a plain file so every later
// write fails while the in-memory state keeps working.
func (h *harness) breakSaves(t *testing.T) {
	t.Helper()
	dir := filepath.Dir(h.storePath)
	require.NoError(t, os.RemoveAll(dir))
	require.NoError(t, os.WriteFile(dir, []byte("not a directory"), 0o600))
}

// answer waits for the intake to ask in the ticket channel and replies as the owner.
func (h *harness) answer(t *testing.T, ticketID, ownerID, content string) {
	t.Helper()
	require.Eventually(t, func() bool { return h.intake.Waiting(ticketID) }, 2*time.Second, 5*time.Millisecond)
	require.True(t, h.intake.Deliver(h.fake.PostUserMessage(ticketID, ownerID, content)))
}

func (h *harness) waitStatus(t *testing.T, ticketID string, status domain.TicketStatus) *domain.Ticket {
	t.Helper()
	var got *domain.Ticket
	require.Eventually(t, func() bool {
		tk, err := h.store.Get(context.Background(), ticketID)
		if err != nil {
			return false
		}
		got = tk
		return tk.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

// openTicket creates a ticket that skips intake and is already Open.
func (h *harness) openTicket(t *testing.T, owner domain.Actor, category domain.Category) *domain.Ticket {
	t.Helper()
	created, err := h.svc.SelectCategory(context.Background(), owner, string(category))
	require.NoError(t, err)
	return h.waitStatus(t, created.ID, domain.TicketStatusOpen)
}
