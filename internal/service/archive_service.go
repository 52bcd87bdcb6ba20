package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/natefinch/atomic"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/domain"
	"github.com/spec-kit/ticket-bot/internal/observability"
	"github.com/spec-kit/ticket-bot/internal/platform"
)

// ErrNoArchiveDestination is returned when no transcript channel is configured.
var ErrNoArchiveDestination = errors.New("no archive destination configured")

var transcriptTemplate = template.Must(template.New("transcript").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Ticket.Name}}</title>
<style>
body{font-family:sans-serif;background:#313338;color:#dbdee1;margin:2em}
.msg{margin:0 0 1em 0}.author{font-weight:bold;color:#fff}.bot{color:#5865f2}
.time{color:#949ba4;font-size:.8em;margin-left:.5em}.embed{border-left:4px solid #5865f2;padding:.3em .8em;margin:.3em 0;background:#2b2d31}
</style>
</head>
<body>
<h1>{{.Ticket.Name}}</h1>
<p>Opened by {{.Ticket.OwnerDisplayName}} ({{.Ticket.OwnerUserID}}) on {{.Created}}, closed {{.Closed}} by {{.ClosedBy}}.</p>
{{range .Messages}}<div class="msg">
<span class="author{{if .AuthorBot}} bot{{end}}">{{if .AuthorName}}{{.AuthorName}}{{else}}{{.AuthorID}}{{end}}</span><span class="time">{{.Timestamp.UTC.Format "2006-01-02 15:04:05"}}</span>
{{if .Content}}<div class="content">{{.Content}}</div>{{end}}
{{range .Embeds}}<div class="embed">{{if .Title}}<strong>{{.Title}}</strong><br>{{end}}{{.Description}}{{range .Fields}}<br><em>{{.Name}}</em>: {{.Value}}{{end}}</div>{{end}}
{{range .Attachments}}<div class="attachment"><a href="{{.}}">{{.}}</a></div>{{end}}
</div>
{{end}}</body>
</html>
`))

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArchiveService exports the transcript of a closed ticket.
type ArchiveService struct {
	platform  platform.Client
	presenter *Presenter
	settings  domain.Settings
	dir       string
	encoder   *zstd.Encoder
	metrics   *observability.Metrics
	logger    *zap.Logger
}

// ArchiveDependencies bundles collaborators for the archive service.
type ArchiveDependencies struct {
	Platform  platform.Client
	Presenter *Presenter
	Settings  domain.Settings
	// Dir keeps a compressed copy of every transcript when set.
	Dir     string
	Metrics *observability.Metrics
	Logger  *zap.Logger
}

// NewArchiveService constructs the service.
func NewArchiveService(deps ArchiveDependencies) (*ArchiveService, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create transcript encoder: %w", err)
	}
	return &ArchiveService{
		platform:  deps.Platform,
		presenter: deps.Presenter,
		settings:  deps.Settings,
		dir:       deps.Dir,
		encoder:   enc,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
	}, nil
}

// Archive renders the transcript and delivers it to the owner and the archive
// destination. It reports whether the archive destination received it; an
// error means the transcript may be lost and needs operator attention.
// Owner delivery is best-effort.
func (a *ArchiveService) Archive(ctx context.Context, closed domain.ClosedTicket) (bool, error) {
	t := closed.Ticket
	history, err := a.platform.ChannelMessages(ctx, t.ID)
	if err != nil {
		a.logger.Error("transcript could not be read", zap.String("ticket_id", t.ID), zap.Error(err))
		a.metrics.RecordOperation("archive", "error")
		return false, fmt.Errorf("read transcript: %w", err)
	}
	page, err := RenderTranscript(closed, history)
	if err != nil {
		a.metrics.RecordOperation("archive", "error")
		return false, err
	}

	notice := a.presenter.ClosureNotice(closed)
	notice.Files = []platform.File{{
		Name:        transcriptFileName(t),
		ContentType: "text/html",
		Data:        page,
	}}

	if err := a.platform.SendDirect(ctx, t.OwnerUserID, notice); err != nil {
		a.logger.Warn("transcript not delivered to owner",
			zap.String("ticket_id", t.ID), zap.String("user_id", t.OwnerUserID), zap.Error(err))
	}

	a.keepLocalCopy(t, closed.ClosedAt, page)

	dest := a.settings.TranscriptChannelID
	if dest == "" {
		a.logger.Error("transcript not archived", zap.String("ticket_id", t.ID), zap.Error(ErrNoArchiveDestination))
		a.metrics.RecordOperation("archive", "error")
		return false, ErrNoArchiveDestination
	}
	if _, err := a.platform.SendMessage(ctx, dest, notice); err != nil {
		a.logger.Error("transcript not delivered to archive destination",
			zap.String("ticket_id", t.ID), zap.String("channel_id", dest), zap.Error(err))
		a.metrics.RecordOperation("archive", "error")
		return false, fmt.Errorf("deliver transcript: %w", err)
	}
	a.metrics.RecordOperation("archive", "ok")
	return true, nil
}

func (a *ArchiveService) keepLocalCopy(t domain.Ticket, closedAt time.Time, page []byte) {
	if a.dir == "" {
		return
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		a.logger.Error("archive directory unavailable", zap.String("dir", a.dir), zap.Error(err))
		return
	}
	name := fmt.Sprintf("%s-%d.html.zst", t.ID, closedAt.Unix())
	compressed := a.encoder.EncodeAll(page, nil)
	if err := atomic.WriteFile(filepath.Join(a.dir, name), bytes.NewReader(compressed)); err != nil {
		a.logger.Error("local transcript copy failed", zap.String("ticket_id", t.ID), zap.Error(err))
	}
}

// RenderTranscript produces the HTML artifact for a closed ticket.
func RenderTranscript(closed domain.ClosedTicket, history []platform.PostedMessage) ([]byte, error) {
	closedBy := closed.ClosedBy.DisplayName
	if closedBy == "" {
		closedBy = closed.ClosedBy.UserID
	}
	data := struct {
		Ticket   domain.Ticket
		Created  string
		Closed   string
		ClosedBy string
		Messages []platform.PostedMessage
	}{
		Ticket:   closed.Ticket,
		Created:  closed.Ticket.CreatedAt.UTC().Format(noticeTimeLayout),
		Closed:   closed.ClosedAt.UTC().Format(noticeTimeLayout),
		ClosedBy: closedBy,
		Messages: history,
	}
	var buf bytes.Buffer
	if err := transcriptTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render transcript: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeArchive reverses the local copy's compression.
func DecodeArchive(compressed []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(compressed, nil)
}

func transcriptFileName(t domain.Ticket) string {
	name := strings.Trim(unsafeFileChars.ReplaceAllString(t.Name, "_"), "_")
	if name == "" {
		name = t.ID
	}
	return "transcript-" + name + ".html"
}
