package llmclient

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// thinkStripper incrementally extracts <think>...</think> reasoning segments
// from a chunked text stream It is boundary-safe: a chunk
// boundary that falls in the middle of a tag is held back until enough of
// the following chunk arrives to resolve it.
type thinkStripper struct {
	buf      strings.Builder
	inThink  bool
}

// thinkOutput is the result of feeding one chunk through the stripper.
type thinkOutput struct {
	Visible   string
	Reasoning string
}

// Feed processes one chunk, returning the visible text and any extracted
// reasoning text resolved so far. Unresolved partial tag matches, and the
// text of a <think> segment whose closing tag has not arrived yet, are held
// in the internal buffer for the next call.
func (s *thinkStripper) Feed(chunk string) thinkOutput {
	s.buf.WriteString(chunk)
	pending := s.buf.String()
	s.buf.Reset()

	var out thinkOutput
	for {
		if !s.inThink {
			idx := strings.Index(pending, thinkOpen)
			if idx == -1 {
				safe, hold := splitOnPartialSuffix(pending, thinkOpen)
				out.Visible += safe
				s.buf.WriteString(hold)
				return out
			}
			out.Visible += pending[:idx]
			pending = pending[idx+len(thinkOpen):]
			s.inThink = true
			continue
		}

		idx := strings.Index(pending, thinkClose)
		if idx == -1 {
			// Hold the whole open segment so Finalize can still return it as
			// visible text if the closing tag never arrives.
			s.buf.WriteString(pending)
			return out
		}
		out.Reasoning += pending[:idx]
		pending = pending[idx+len(thinkClose):]
		s.inThink = false
	}
}

// Finalize flushes any buffered content. An unclosed <think> tag at
// finalize time is treated as visible text
func (s *thinkStripper) Finalize() thinkOutput {
	rest := s.buf.String()
	s.buf.Reset()
	if s.inThink {
		// An unterminated reasoning segment: what looked like reasoning is
		// reclassified as visible text, and so is anything still buffered.
		s.inThink = false
		return thinkOutput{Visible: thinkOpen + rest}
	}
	return thinkOutput{Visible: rest}
}

// splitOnPartialSuffix returns (text safe to emit now, suffix to hold back)
// when text's tail might be a prefix of tag but tag itself isn't present.
func splitOnPartialSuffix(text, tag string) (safe, hold string) {
	maxCheck := len(tag) - 1
	if maxCheck > len(text) {
		maxCheck = len(text)
	}
	for n := maxCheck; n > 0; n-- {
		if strings.HasPrefix(tag, text[len(text)-n:]) {
			return text[:len(text)-n], text[len(text)-n:]
		}
	}
	return text, ""
}
