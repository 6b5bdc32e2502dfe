// Package previewer posts pic+caption-ready to_publish rows to a separate
// preview channel ahead of their scheduled delivery, so an editor can see
// what is queued before Publisher sends it to the real audience.
package previewer

import (
	"context"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
	"github.com/newsline-bot/editor-engine/internal/infra/observability"
)

// Sender is the subset of telegram.Client Previewer depends on; callers wire
// it to a Client configured with the preview channel's chat ID, distinct
// from the one Publisher sends to.
type Sender interface {
	SendPhoto(ctx context.Context, photoBase64, caption string) error
}

// Store is the subset of store.Store Previewer depends on.
type Store interface {
	ListToPublishPreviewPending(limit int) ([]*domain.ToPublishRow, error)
	UpdatePreview(id int64) error
}

// Config controls batching and pacing.
type Config struct {
	BatchSize         int           // rows fetched per Tick, default 5
	InterRequestPause time.Duration // pause between posts in a batch, default 10s
}

// Previewer posts pending rows to the preview channel one at a time,
// annotating each caption with its row ID and scheduled publish time.
type Previewer struct {
	sender Sender
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds a Previewer.
func New(sender Sender, store Store, cfg Config, logger zerolog.Logger) *Previewer {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 5
	}
	if cfg.InterRequestPause <= 0 {
		cfg.InterRequestPause = 10 * time.Second
	}
	return &Previewer{sender: sender, store: store, cfg: cfg, logger: logger.With().Str("component", "previewer").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (p *Previewer) Name() string { return "previewer" }

// Tick fetches one batch of preview-pending rows and posts each in turn. A
// send failure is logged and the batch continues — preview is a convenience
// feed, not gated delivery, so one broken row shouldn't block the rest.
func (p *Previewer) Tick(ctx context.Context) error {
	rows, err := p.store.ListToPublishPreviewPending(p.cfg.BatchSize)
	if err != nil {
		return err
	}

	for i, row := range rows {
		if !row.ReadyToPreview() {
			continue
		}
		if err := p.previewRow(ctx, row); err != nil {
			p.logger.Error().Err(err).Int64("id", row.ID).Msg("failed to post preview")
		}
		if i < len(rows)-1 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.cfg.InterRequestPause):
			}
		}
	}
	return nil
}

func (p *Previewer) previewRow(ctx context.Context, row *domain.ToPublishRow) error {
	caption := annotateCaption(row.TextPrepared, row.ID, row.Time)
	if err := p.sender.SendPhoto(ctx, row.PicBase64, caption); err != nil {
		observability.RecordsHandled.WithLabelValues("previewer", "error").Inc()
		return err
	}
	if err := p.store.UpdatePreview(row.ID); err != nil {
		return err
	}
	observability.RecordsHandled.WithLabelValues("previewer", "previewed").Inc()
	p.logger.Info().Int64("id", row.ID).Msg("posted preview")
	return nil
}

// annotateCaption appends a literal "[ID] n" marker and, if publishUnix is
// set, the scheduled publish time in Moscow local time — matching the
// preview channel's original purpose of giving an editor a human-readable
// heads-up on what's queued and when it will go out.
func annotateCaption(caption string, id int64, publishUnix int64) string {
	result := fmt.Sprintf("%s\n\n\\[ID\\] %d", caption, id)
	if publishUnix <= 0 {
		return result
	}
	formatted := formatMoscowTime(publishUnix)
	if formatted == "" {
		return result
	}
	return result + "\n\n\\=\\=\\=\n\n" + escapeMarkdown(formatted)
}

func formatMoscowTime(unixSeconds int64) string {
	loc, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		return ""
	}
	return time.Unix(unixSeconds, 0).In(loc).Format("02.01.2006, 15:04")
}

// markdownSpecialChars mirrors the preview service's own escaping table,
// which additionally escapes comma and colon beyond the caption renderer's
// set since this text includes a literal formatted date like "01.02.2026,
// 13:23".
var markdownSpecialChars = []string{
	"\\", "_", "*", "[", "]", "(", ")", "~", "`",
	">", "<", "&", "#", "+", "-", "=", "|", "{", "}", ".", "!", ",", ":",
}

func escapeMarkdown(text string) string {
	if text == "" {
		return ""
	}
	for _, ch := range markdownSpecialChars {
		text = strings.ReplaceAll(text, ch, "\\"+ch)
	}
	return text
}
