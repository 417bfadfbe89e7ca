package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/mbeoliero/kit/log"
	"github.com/mbeoliero/uq/pkg/metrics"
)

// Translate asks c for a translation of text into targetLanguage.
// ok is false when the provider is disabled or failed, in which case text is returned unchanged.
func Translate(ctx context.Context, c Completer, text, targetLanguage string) (translated string, ok bool) {
	if c == nil || strings.TrimSpace(text) == "" {
		return text, false
	}

	prompt := fmt.Sprintf("Translate this message to %s. Return ONLY the translation, no explanation:\n\n%s",
		targetLanguage, text)
	out, err := c.Complete(ctx, prompt)
	if err != nil || out == "" {
		metrics.AICalls.WithLabelValues("translate", metrics.ResultFailed).Inc()
		log.CtxWarn(ctx, "translate failed, returning original: lang=%s, error=%v", targetLanguage, err)
		return text, false
	}

	metrics.AICalls.WithLabelValues("translate", metrics.ResultOK).Inc()
	return out, true
}

// Summarize asks c for a 2-3 sentence summary of lines. Returns "" on any failure.
func Summarize(ctx context.Context, c Completer, lines []string) string {
	if c == nil || len(lines) == 0 {
		return ""
	}

	prompt := "Summarize this conversation in 2-3 sentences:\n\n" + strings.Join(lines, "\n")
	out, err := c.Complete(ctx, prompt)
	if err != nil {
		metrics.AICalls.WithLabelValues("summarize", metrics.ResultFailed).Inc()
		log.CtxWarn(ctx, "summarize failed: error=%v", err)
		return ""
	}

	metrics.AICalls.WithLabelValues("summarize", metrics.ResultOK).Inc()
	return out
}
