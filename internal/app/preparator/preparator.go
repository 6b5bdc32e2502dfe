// Package preparator turns a raw candidate's text into the MarkdownV2
// caption Publisher sends to Telegram: it splits the "1111"-delimited raw
// text into its components, escapes special characters, and assembles the
// final caption with source and subscribe links.
package preparator

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/newsline-bot/editor-engine/internal/domain"
)

// Store is the subset of store.Store Preparator depends on.
type Store interface {
	ListToPublishPreparePending(limit int) ([]*domain.ToPublishRow, error)
	UpdatePrepared(id int64, text string) error
}

// Config controls batching and the caption's fixed links.
type Config struct {
	BatchSize int // rows fetched per Tick, default 10

	// SourceLinkLabel/SubscribeLabel/SubscribeURL render the caption's
	// trailing link lines; SubscribeURL is empty by default (no subscribe
	// line emitted) so deployments must opt in with their own channel link.
	SourceLinkLabel string
	SubscribeLabel  string
	SubscribeURL    string
}

// Preparator renders a delivery-ready caption for each prepare-pending row.
type Preparator struct {
	store  Store
	cfg    Config
	logger zerolog.Logger
}

// New builds a Preparator.
func New(store Store, cfg Config, logger zerolog.Logger) *Preparator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.SourceLinkLabel == "" {
		cfg.SourceLinkLabel = "Source"
	}
	if cfg.SubscribeLabel == "" {
		cfg.SubscribeLabel = "Subscribe"
	}
	return &Preparator{store: store, cfg: cfg, logger: logger.With().Str("component", "preparator").Logger()}
}

// Name identifies this task to supervisor.Supervisor.
func (p *Preparator) Name() string { return "preparator" }

// Tick fetches one batch of prepare-pending rows and renders each caption.
func (p *Preparator) Tick(ctx context.Context) error {
	rows, err := p.store.ListToPublishPreparePending(p.cfg.BatchSize)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := p.prepareRow(row); err != nil {
			p.logger.Error().Err(err).Int64("id", row.ID).Msg("failed to prepare caption")
		}
	}
	return nil
}

func (p *Preparator) prepareRow(row *domain.ToPublishRow) error {
	raw := strings.TrimSpace(row.Text)
	if raw == "" {
		return p.store.UpdatePrepared(row.ID, "")
	}

	components, kind := parseComponents(raw)
	if kind == kindUnknown {
		p.logger.Warn().Int64("id", row.ID).Int("parts", len(splitDelimiter(raw))).Msg("unrecognized caption format")
		return p.store.UpdatePrepared(row.ID, "")
	}

	caption := p.render(kind, components)
	return p.store.UpdatePrepared(row.ID, caption)
}

type captionKind int

const (
	kindUnknown captionKind = iota
	kindShort               // original, link
	kindLong                // original, link, title, output
)

var delimiter = regexp.MustCompile(`1111\s*`)

func splitDelimiter(raw string) []string {
	parts := delimiter.Split(strings.TrimSpace(raw), -1)
	for i, part := range parts {
		parts[i] = cleanLines(part)
	}
	return parts
}

// cleanLines trims each line independently, preserving internal blank lines.
func cleanLines(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func parseComponents(raw string) (map[string]string, captionKind) {
	parts := splitDelimiter(raw)
	switch len(parts) {
	case 2:
		return map[string]string{"original": parts[0], "link": parts[1]}, kindShort
	case 4:
		return map[string]string{"original": parts[0], "link": parts[1], "title": parts[2], "output": parts[3]}, kindLong
	default:
		return nil, kindUnknown
	}
}

// markdownSpecialChars are the 21 characters escaped in captions. The
// backslash comes first so the backslashes added for the others are not
// escaped again.
var markdownSpecialChars = []string{
	"\\", "_", "*", "[", "]", "(", ")", "~", "`",
	">", "<", "&", "#", "+", "-", "=", "|", "{", "}", ".", "!",
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

// paragraphQuote renders text as a MarkdownV2 blockquote: blank-line
// separated paragraphs each prefixed with '>' on every line.
func paragraphQuote(text string) string {
	if text == "" {
		return ""
	}
	rawParagraphs := strings.Split(text, "\n\n")
	var quoted []string
	for _, para := range rawParagraphs {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		var lines []string
		for _, line := range strings.Split(para, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}
			lines = append(lines, ">"+line)
		}
		if len(lines) == 0 {
			continue
		}
		quoted = append(quoted, strings.Join(lines, "\n"))
	}
	return strings.Join(quoted, "\n>\n")
}

func (p *Preparator) render(kind captionKind, c map[string]string) string {
	original := escapeMarkdown(c["original"])
	link := c["link"]

	var outputPart string
	if kind == kindLong {
		title, output := c["title"], c["output"]
		combined := output
		if title != "" {
			combined = title + "\n\n" + output
		}
		outputPart = paragraphQuote(escapeMarkdown(combined))
	}

	var b strings.Builder
	b.WriteString(original)
	if outputPart != "" {
		b.WriteString("\n\n")
		b.WriteString(outputPart)
	}
	b.WriteString("\n\n\n")
	b.WriteString("[" + p.cfg.SourceLinkLabel + "](" + link + ")")
	if p.cfg.SubscribeURL != "" {
		b.WriteString("\n")
		b.WriteString("[" + p.cfg.SubscribeLabel + "](" + p.cfg.SubscribeURL + ")")
	}
	return b.String()
}
