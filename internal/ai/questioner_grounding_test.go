package ai_test

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/ai"
	"github.com/spigell/interview-brain/internal/grounding"
)

type staticCompleter string

func (s staticCompleter) Complete(context.Context, string, string) (string, error) {
	return string(s), nil
}

func (staticCompleter) Provider() string { return "static" }
func (staticCompleter) Model() string    { return "static-1" }

func TestGeneratedCitationsReachGroundingUnchanged(t *testing.T) {
	retrieved := []string{"rubric:rubric::Senior Data Engineer#c0"}

	cases := []struct {
		name      string
		reply     string
		wantErr   bool
		grounded  bool
		citations int
	}{
		{
			name:      "blank citation",
			reply:     `{"question":"Why Flink?","rationale_citations":["rubric:rubric::Senior Data Engineer#c0",""]}`,
			citations: 2,
		},
		{
			name:      "citation without separator",
			reply:     `{"question":"Why Flink?","rationale_citations":["rubric:rubric::Senior Data Engineer#c0","resume"]}`,
			citations: 2,
		},
		{
			name:    "citations as a bare string",
			reply:   `{"question":"Why Flink?","rationale_citations":"rubric:rubric::Senior Data Engineer#c0"}`,
			wantErr: true,
		},
		{
			name:    "citations with a non-string entry",
			reply:   `{"question":"Why Flink?","rationale_citations":["rubric:rubric::Senior Data Engineer#c0",7]}`,
			wantErr: true,
		},
		{
			name:      "well formed",
			reply:     `{"question":"Why Flink?","rationale_citations":[" rubric:rubric::Senior Data Engineer#c0 "]}`,
			grounded:  true,
			citations: 1,
		},
	}

	chain := grounding.ForPolicy(grounding.PolicySyntactic, nil)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := ai.NewQuestioner(staticCompleter(tc.reply), zap.NewNop(), 0)

			got, err := q.GenerateQuestion(context.Background(), ai.QuestionRequest{Role: "Senior Data Engineer"})
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected decode error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got.RationaleCitations) != tc.citations {
				t.Fatalf("expected %d citations, got %q", tc.citations, got.RationaleCitations)
			}

			v := chain.Validate(got, retrieved)
			if v.Grounded != tc.grounded {
				t.Fatalf("expected grounded=%v, got %+v", tc.grounded, v)
			}
			if grounding.IsGrounded(got) != tc.grounded {
				t.Fatalf("IsGrounded disagrees with the chain for %q", got.RationaleCitations)
			}
		})
	}
}
