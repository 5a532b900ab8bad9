package ai

import (
	"context"

	"github.com/spigell/interview-brain/internal/retrieval"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Target is the dimension and difficulty the next question should aim at.
type Target struct {
	Dimension  string     `json:"dimension"`
	Difficulty Difficulty `json:"difficulty"`
}

// Question is the structured output of question generation.
type Question struct {
	Question           string   `json:"question" mapstructure:"question"`
	Followups          []string `json:"followups" mapstructure:"followups"`
	Dimension          string   `json:"dimension" mapstructure:"dimension"`
	Difficulty         string   `json:"difficulty" mapstructure:"difficulty"`
	RationaleCitations []string `json:"rationale_citations" mapstructure:"rationale_citations"`
}

// HistoryEntry is a transcript line passed to the generator as context.
type HistoryEntry struct {
	Actor string `json:"actor"`
	Text  string `json:"text"`
}

type QuestionRequest struct {
	CandidateName string
	Role          string
	Target        Target
	Snippets      []retrieval.Snippet
	RecentTurns   []HistoryEntry
}

// Questioner produces interview content from grounded context.
type Questioner interface {
	GenerateQuestion(ctx context.Context, req QuestionRequest) (*Question, error)
	SummarizeRubric(ctx context.Context, rubric string) ([]string, error)
}

// Completer sends a system and a user prompt to a language model and returns the raw text reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Provider() string
	Model() string
}
