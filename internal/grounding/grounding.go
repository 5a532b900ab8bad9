package grounding

import (
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/ai"
)

// Policy selects which checks a chain runs.
type Policy string

const (
	// PolicySyntactic accepts any well-formed citation.
	PolicySyntactic Policy = "syntactic"
	// PolicyStrict additionally requires every citation to be one of the retrieved tags.
	PolicyStrict Policy = "strict"
)

// IsGrounded reports whether q carries at least one citation and every citation
// contains a ':' separator. It does not check that citations were actually retrieved.
func IsGrounded(q *ai.Question) bool {
	if q == nil || len(q.RationaleCitations) == 0 {
		return false
	}
	for _, c := range q.RationaleCitations {
		if !strings.Contains(c, ":") {
			return false
		}
	}
	return true
}

// Check is a single acceptance rule for generated questions.
type Check interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	// Apply returns a non-empty reason when the question is rejected.
	Apply(q *ai.Question, retrieved []string) string
}

// Verdict is the outcome of running a chain.
type Verdict struct {
	Grounded bool
	Check    string
	Reason   string
}

// Status represents runtime information about a check.
type Status struct {
	Name    string            `json:"name"`
	Enabled bool              `json:"enabled"`
	Reason  string            `json:"reason,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type statusProvider interface {
	Status() Status
}

// Chain runs checks in order and stops at the first rejection.
type Chain struct {
	checks []Check
	logger *zap.Logger
}

func NewChain(logger *zap.Logger, checks ...Check) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{checks: checks, logger: logger}
}

// ForPolicy builds the chain for the named policy. Unknown policies fall back to syntactic.
func ForPolicy(policy Policy, logger *zap.Logger) *Chain {
	retrieved := NewCitationsRetrieved()
	if policy != PolicyStrict {
		retrieved.Disable("policy is " + string(PolicySyntactic))
	}
	return NewChain(logger,
		NewQuestionPresent(),
		NewCitationsPresent(),
		NewCitationsSyntax(),
		retrieved,
	)
}

// Validate runs every enabled check against q.
func (c *Chain) Validate(q *ai.Question, retrieved []string) Verdict {
	for _, check := range c.checks {
		if !check.IsEnabled() {
			continue
		}
		if reason := check.Apply(q, retrieved); reason != "" {
			c.logger.Debug("question rejected",
				zap.String("check", check.Name()),
				zap.String("reason", reason),
			)
			return Verdict{Grounded: false, Check: check.Name(), Reason: reason}
		}
	}
	return Verdict{Grounded: true}
}

func (c *Chain) Checks() []Check {
	return c.checks
}

// DisableByName marks a check with the provided name as disabled while keeping it in the chain.
func DisableByName(checks []Check, name, reason string) {
	for _, check := range checks {
		if check.Name() == name {
			check.Disable(reason)
		}
	}
}

// Describe returns status entries for the provided checks.
func Describe(checks []Check) []Status {
	statuses := make([]Status, 0, len(checks))
	for _, check := range checks {
		if reporter, ok := check.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    check.Name(),
			Enabled: check.IsEnabled(),
		})
	}
	return statuses
}
