package render

import (
	"context"
	"fmt"
	"html/template"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/Dhwanijoshi3/nestle-chatbot/internal/backend"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/formatting"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/metrics"
	"github.com/Dhwanijoshi3/nestle-chatbot/internal/sources"
)

// ErrorMessage is shown in place of an answer when the backend call fails.
const ErrorMessage = "Sorry, I encountered an error. Please try again later."

// Config controls how assistant messages look.
type Config struct {
	AssistantName string `mapstructure:"assistant_name"`
	PreviewCount  int    `mapstructure:"preview_sources"`
}

// DefaultConfig matches the stock widget.
func DefaultConfig() Config {
	return Config{
		AssistantName: "Nestlé Assistant",
		PreviewCount:  3,
	}
}

// Reference is one entry of a message's references list.
type Reference struct {
	Index  int    `json:"index"`
	URL    string `json:"url"`
	Label  string `json:"label"`
	Hidden bool   `json:"hidden"`
}

// Message is a fully composed assistant reply.
type Message struct {
	Answer     string            `json:"answer"`
	Formatted  formatting.Answer `json:"formatted"`
	Sources    []string          `json:"sources"`
	References []Reference       `json:"references"`
	HTML       string            `json:"html"`
}

// Composer combines a formatted answer and its normalized sources into one
// sanitized message block.
type Composer struct {
	cfg        Config
	normalizer *sources.Normalizer
	policy     *bluemonday.Policy
	logger     *zap.Logger
}

// NewComposer returns a Composer. A nil normalizer uses the default brand table.
func NewComposer(cfg Config, normalizer *sources.Normalizer, logger *zap.Logger) *Composer {
	if cfg.AssistantName == "" {
		cfg.AssistantName = DefaultConfig().AssistantName
	}
	if cfg.PreviewCount <= 0 {
		cfg.PreviewCount = DefaultConfig().PreviewCount
	}
	if normalizer == nil {
		normalizer = sources.NewNormalizer(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Composer{
		cfg:        cfg,
		normalizer: normalizer,
		policy:     NewPolicy(),
		logger:     logger,
	}
}

// Config returns the composer's effective settings.
func (c *Composer) Config() Config { return c.cfg }

// Compose formats answer, dedupes and normalizes rawSources and renders the
// result. The only error is ctx being done.
func (c *Composer) Compose(ctx context.Context, answer string, rawSources []string) (Message, error) {
	formatted := formatting.Format(answer)

	normalized, err := c.normalizer.NormalizeAll(ctx, rawSources)
	if err != nil {
		return Message{}, fmt.Errorf("normalize sources: %w", err)
	}

	refs := make([]Reference, len(normalized))
	for i, s := range normalized {
		refs[i] = Reference{
			Index:  i + 1,
			URL:    s.CanonicalURL,
			Label:  s.DisplayLabel,
			Hidden: i >= c.cfg.PreviewCount,
		}
	}

	var b strings.Builder
	if err := assistantTmpl.Execute(&b, c.cfg.AssistantName); err != nil {
		return Message{}, fmt.Errorf("render heading: %w", err)
	}
	b.WriteString(formatting.RenderHTML(formatted))

	if len(refs) > 0 {
		data := struct {
			References  []Reference
			Collapsible bool
		}{refs, len(refs) > c.cfg.PreviewCount}
		if err := referencesTmpl.Execute(&b, data); err != nil {
			return Message{}, fmt.Errorf("render references: %w", err)
		}
	}

	metrics.RecordComposition(formatted.Simple, len(rawSources), len(refs))
	c.logger.Debug("Composed message",
		zap.Int("blocks", len(formatted.Blocks)),
		zap.Bool("simple", formatted.Simple),
		zap.Int("sources", len(rawSources)),
		zap.Int("references", len(refs)),
	)

	return Message{
		Answer:     answer,
		Formatted:  formatted,
		Sources:    sources.Dedupe(rawSources),
		References: refs,
		HTML:       c.policy.Sanitize(b.String()),
	}, nil
}

// ErrorHTML renders the apology shown when a chat turn fails.
func (c *Composer) ErrorHTML() string {
	var b strings.Builder
	if err := assistantTmpl.Execute(&b, c.cfg.AssistantName); err != nil {
		c.logger.Error("Failed to render assistant label", zap.Error(err))
	}
	b.WriteString(template.HTMLEscapeString(ErrorMessage))
	return c.policy.Sanitize(b.String())
}

// UserHTML renders the user's own message. The text is always escaped.
func (c *Composer) UserHTML(text string) string {
	var b strings.Builder
	if err := userTmpl.Execute(&b, text); err != nil {
		c.logger.Error("Failed to render user message", zap.Error(err))
		return template.HTMLEscapeString(text)
	}
	return c.policy.Sanitize(b.String())
}

type statsRow struct {
	Name  string
	Count int
}

// GraphStatsHTML renders the graph statistics panel with rows sorted by name.
func (c *Composer) GraphStatsHTML(stats backend.GraphStats) string {
	data := struct {
		Nodes              []statsRow
		Relationships      []statsRow
		TotalNodes         int
		TotalRelationships int
	}{
		Nodes:              sortedRows(stats.Nodes),
		Relationships:      sortedRows(stats.Relationships),
		TotalNodes:         stats.TotalNodes,
		TotalRelationships: stats.TotalRelationships,
	}

	var b strings.Builder
	if err := graphStatsTmpl.Execute(&b, data); err != nil {
		c.logger.Error("Failed to render graph stats", zap.Error(err))
		return ""
	}
	return c.policy.Sanitize(b.String())
}

func sortedRows(m map[string]int) []statsRow {
	rows := make([]statsRow, 0, len(m))
	for k, v := range m {
		rows = append(rows, statsRow{Name: k, Count: v})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows
}
