package memstore

import (
	"context"
	"regexp"
	"strings"
	"time"

	"codexcore/internal/embedclient"
)

const (
	// SummaryMaxTokens bounds the local model's sampled summary length.
	SummaryMaxTokens = 96
	// SummaryMaxChars bounds the text-wrap fallback's output length.
	SummaryMaxChars = 280
	// endMarker terminates a well-formed model summary.
	endMarker = "<END>"
)

// Summarizer is the local GGUF model surface the distiller drives, named
// after MiniCpmManager.summarise.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string, maxTokens int) (string, error)
	ContextWindow() int
}

// EnabledChecker reports whether memory is currently enabled, consulted a
// second time right before a distilled record is committed: the distiller
// must not persist work for a feature disabled mid-flight.
type EnabledChecker func() bool

// Distiller is the long-lived background worker that drains a MemoryEvent
// queue, summarizes each one through a local model with a retry-then-
// fallback policy, and appends the result to a Store.
type Distiller struct {
	Store      *Store
	Summarizer Summarizer
	Embedder   embedclient.Embedder
	Enabled    EnabledChecker

	events chan MemoryEvent
	done   chan struct{}
}

// NewDistiller builds a distiller with a bounded event queue.
func NewDistiller(store *Store, sum Summarizer, embedder embedclient.Embedder, enabled EnabledChecker, queueSize int) *Distiller {
	if queueSize <= 0 {
		queueSize = 256
	}
	return &Distiller{
		Store: store, Summarizer: sum, Embedder: embedder, Enabled: enabled,
		events: make(chan MemoryEvent, queueSize), done: make(chan struct{}),
	}
}

// Enqueue submits a raw event for distillation; it never blocks the caller
// indefinitely, preferring to drop the event when the queue is full over
// unbounded memory growth.
func (d *Distiller) Enqueue(ev MemoryEvent) bool {
	select {
	case d.events <- ev:
		return true
	default:
		return false
	}
}

// Run drains the event queue until ctx is canceled or Stop is called.
func (d *Distiller) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.done:
			return
		case ev := <-d.events:
			d.process(ctx, ev)
		}
	}
}

// Stop signals Run to exit after the in-flight event finishes.
func (d *Distiller) Stop() { close(d.done) }

func (d *Distiller) process(ctx context.Context, ev MemoryEvent) {
	summary, confidence := d.summarize(ctx, ev.Text)
	summary = clean(summary)

	if d.Enabled != nil && !d.Enabled() {
		return
	}

	embeddings, err := d.Embedder.EmbedBatch(ctx, []string{summary})
	if err != nil || len(embeddings) == 0 {
		return
	}

	_, _ = d.Store.Append(ctx, MemoryRecord{
		Summary: summary, Embedding: embeddings[0], Metadata: ev.Metadata,
		Confidence: confidence, Source: ev.Source,
	})
}

// summarize runs the retry-then-fallback pipeline and returns the cleaned
// (but not yet whitespace-collapsed) summary plus its confidence score.
func (d *Distiller) summarize(ctx context.Context, input string) (string, float64) {
	ctxWindow := 2048
	if d.Summarizer != nil {
		if w := d.Summarizer.ContextWindow(); w > 0 {
			ctxWindow = w
		}
	}
	clipLen := ctxWindow * 4
	clipped := input
	wasClipped := false
	if len(clipped) > clipLen {
		clipped = clipped[:clipLen]
		wasClipped = true
	}

	prompt := buildSummaryPrompt(clipped)

	var out string
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		if d.Summarizer == nil {
			err = errNoSummarizer
			break
		}
		out, err = d.Summarizer.Summarize(ctx, prompt, SummaryMaxTokens)
		if err == nil {
			break
		}
		if attempt < 3 {
			time.Sleep(time.Duration(attempt) * 250 * time.Millisecond)
		}
	}

	hadEndMarker := true
	if err != nil || out == "" {
		out = textWrapFallback(clipped, SummaryMaxChars)
		hadEndMarker = false
	} else {
		hadEndMarker = strings.Contains(out, endMarker)
		out = strings.TrimSuffix(strings.TrimSpace(out), endMarker)
	}

	confidence := confidenceFor(len(out), len(clipped), wasClipped, hadEndMarker)
	return out, confidence
}

var errNoSummarizer = &noSummarizerError{}

type noSummarizerError struct{}

func (*noSummarizerError) Error() string { return "memstore: no summarizer configured" }

func buildSummaryPrompt(text string) string {
	var b strings.Builder
	b.WriteString("Summarize the following in at most 3 sentences, ending with ")
	b.WriteString(endMarker)
	b.WriteString(":\n\n")
	b.WriteString(text)
	return b.String()
}

// confidenceFor computes summary_len/input_len clamped to [0.25, 0.95],
// with a 0.85x penalty for clipped input and 0.9x for a missing end marker.
func confidenceFor(summaryLen, inputLen int, clipped, hadEndMarker bool) float64 {
	if inputLen == 0 {
		return 0.25
	}
	c := float64(summaryLen) / float64(inputLen)
	if clipped {
		c *= 0.85
	}
	if !hadEndMarker {
		c *= 0.9
	}
	if c < 0.25 {
		c = 0.25
	}
	if c > 0.95 {
		c = 0.95
	}
	return c
}

// textWrapFallback returns the first up-to-3 lines of a naive word-wrap,
// truncated to maxChars, used when the local model is unavailable or
// exhausts its retries.
func textWrapFallback(text string, maxChars int) string {
	words := strings.Fields(text)
	var lines []string
	var cur strings.Builder
	const wrapWidth = 80
	for _, w := range words {
		if cur.Len()+len(w)+1 > wrapWidth {
			lines = append(lines, cur.String())
			cur.Reset()
			if len(lines) == 3 {
				break
			}
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 && len(lines) < 3 {
		lines = append(lines, cur.String())
	}
	out := strings.Join(lines, " ")
	if len(out) > maxChars {
		out = out[:maxChars]
	}
	return out
}

var whitespaceRun = regexp.MustCompile(`\s+`)
var controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f]`)

// clean collapses whitespace runs and strips control characters.
func clean(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	s = whitespaceRun.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
