package grounding

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/interview-brain/internal/ai"
)

func TestIsGrounded(t *testing.T) {
	cases := []struct {
		name string
		q    *ai.Question
		want bool
	}{
		{name: "nil question", q: nil, want: false},
		{name: "no citations", q: &ai.Question{Question: "q"}, want: false},
		{name: "empty citations", q: &ai.Question{Question: "q", RationaleCitations: []string{}}, want: false},
		{name: "missing separator", q: &ai.Question{RationaleCitations: []string{"rubric:x#c0", "resume-x"}}, want: false},
		{name: "well formed", q: &ai.Question{RationaleCitations: []string{"rubric:rubric::r#c0"}}, want: true},
		{name: "fabricated but well formed", q: &ai.Question{RationaleCitations: []string{"made:up"}}, want: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsGrounded(tc.q); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestSyntacticChain(t *testing.T) {
	chain := ForPolicy(PolicySyntactic, nil)
	retrieved := []string{"rubric:rubric::r#c0"}

	cases := []struct {
		name      string
		q         *ai.Question
		grounded  bool
		failCheck string
	}{
		{name: "empty text", q: &ai.Question{RationaleCitations: retrieved}, failCheck: "question_present"},
		{name: "no citations", q: &ai.Question{Question: "Why?"}, failCheck: "citations_present"},
		{name: "bad syntax", q: &ai.Question{Question: "Why?", RationaleCitations: []string{"nope"}}, failCheck: "citations_syntax"},
		{name: "not retrieved passes", q: &ai.Question{Question: "Why?", RationaleCitations: []string{"resume:other#c9"}}, grounded: true},
		{name: "retrieved", q: &ai.Question{Question: "Why?", RationaleCitations: retrieved}, grounded: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			v := chain.Validate(tc.q, retrieved)
			if v.Grounded != tc.grounded {
				t.Fatalf("expected grounded=%v, got %+v", tc.grounded, v)
			}
			if v.Check != tc.failCheck {
				t.Fatalf("expected failing check %q, got %q", tc.failCheck, v.Check)
			}
		})
	}
}

func TestStrictChainRejectsUnretrievedCitations(t *testing.T) {
	core, observed := observer.New(zapcore.DebugLevel)
	chain := ForPolicy(PolicyStrict, zap.New(core))

	q := &ai.Question{Question: "Why?", RationaleCitations: []string{"rubric:rubric::r#c0", "resume:resume::c::r#c7"}}
	v := chain.Validate(q, []string{"rubric:rubric::r#c0"})
	if v.Grounded || v.Check != "citations_retrieved" {
		t.Fatalf("expected strict rejection, got %+v", v)
	}
	if v.Reason == "" {
		t.Fatal("expected a reason")
	}

	if len(observed.FilterMessage("question rejected").All()) != 1 {
		t.Fatal("expected rejection to be logged")
	}

	var status Status
	for _, s := range Describe(chain.Checks()) {
		if s.Name == "citations_retrieved" {
			status = s
		}
	}
	if !status.Enabled || status.Details["rejected"] != "1" {
		t.Fatalf("unexpected status: %+v", status)
	}
}

func TestDescribeAndDisable(t *testing.T) {
	chain := ForPolicy(PolicySyntactic, nil)
	statuses := Describe(chain.Checks())
	if len(statuses) != 4 {
		t.Fatalf("expected 4 checks, got %d", len(statuses))
	}
	if statuses[3].Enabled || statuses[3].Reason == "" {
		t.Fatalf("citations_retrieved must be disabled with a reason under syntactic policy: %+v", statuses[3])
	}

	DisableByName(chain.Checks(), "citations_present", "testing")
	DisableByName(chain.Checks(), "question_present", "testing")
	v := chain.Validate(&ai.Question{}, nil)
	if !v.Grounded {
		t.Fatalf("disabled checks must be skipped, got %+v", v)
	}
}
