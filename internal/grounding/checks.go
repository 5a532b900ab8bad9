package grounding

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/spigell/interview-brain/internal/ai"
)

type toggle struct {
	disabled bool
	reason   string
}

func (t *toggle) Disable(reason string) {
	t.disabled = true
	t.reason = reason
}

func (t *toggle) IsEnabled() bool { return !t.disabled }

type questionPresent struct{ toggle }

// NewQuestionPresent rejects questions with empty text.
func NewQuestionPresent() Check {
	return &questionPresent{}
}

func (c *questionPresent) Name() string { return "question_present" }

func (c *questionPresent) Apply(q *ai.Question, _ []string) string {
	if q == nil || strings.TrimSpace(q.Question) == "" {
		return "question text is empty"
	}
	return ""
}

type citationsPresent struct{ toggle }

// NewCitationsPresent rejects questions without rationale citations.
func NewCitationsPresent() Check {
	return &citationsPresent{}
}

func (c *citationsPresent) Name() string { return "citations_present" }

func (c *citationsPresent) Apply(q *ai.Question, _ []string) string {
	if q == nil || len(q.RationaleCitations) == 0 {
		return "no rationale citations"
	}
	return ""
}

type citationsSyntax struct{ toggle }

// NewCitationsSyntax rejects citations without a ':' separator.
func NewCitationsSyntax() Check {
	return &citationsSyntax{}
}

func (c *citationsSyntax) Name() string { return "citations_syntax" }

func (c *citationsSyntax) Apply(q *ai.Question, _ []string) string {
	if q == nil {
		return "no question"
	}
	for _, citation := range q.RationaleCitations {
		if !strings.Contains(citation, ":") {
			return fmt.Sprintf("malformed citation %q", citation)
		}
	}
	return ""
}

type citationsRetrieved struct {
	toggle
	rejected atomic.Int64
}

// NewCitationsRetrieved rejects citations that are not among the tags retrieved for the turn.
func NewCitationsRetrieved() Check {
	return &citationsRetrieved{}
}

func (c *citationsRetrieved) Name() string { return "citations_retrieved" }

func (c *citationsRetrieved) Apply(q *ai.Question, retrieved []string) string {
	if q == nil {
		return "no question"
	}
	known := make(map[string]bool, len(retrieved))
	for _, tag := range retrieved {
		known[tag] = true
	}
	for _, citation := range q.RationaleCitations {
		if !known[strings.TrimSpace(citation)] {
			c.rejected.Add(1)
			return fmt.Sprintf("citation %q was not retrieved", citation)
		}
	}
	return ""
}

func (c *citationsRetrieved) Status() Status {
	return Status{
		Name:    c.Name(),
		Enabled: c.IsEnabled(),
		Reason:  c.reason,
		Details: map[string]string{"rejected": strconv.FormatInt(c.rejected.Load(), 10)},
	}
}
