package usecase

import (
	"regexp"
	"strings"

	"github.com/kirillkom/agentic-rag/internal/core/domain"
)

var (
	standaloneDigit = regexp.MustCompile(`\b([01])\b`)
	anyDigit        = regexp.MustCompile(`([01])`)
)

// ParseDecision extracts the verdict from the decision model's reply.
// ok is false when the reply had no 0/1 at all and the default was used.
func ParseDecision(reply string) (decision domain.Decision, ok bool) {
	reply = strings.TrimSpace(reply)
	if m := standaloneDigit.FindStringSubmatch(reply); m != nil {
		return domain.Decision(m[1]), true
	}
	if m := anyDigit.FindStringSubmatch(reply); m != nil {
		return domain.Decision(m[1]), true
	}
	return domain.DecisionIrrelevant, false
}
