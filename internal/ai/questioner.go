package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/logger"
	"github.com/spigell/interview-brain/internal/utils"
)

//go:embed prompts/question_system.md
var questionSystemPrompt string

//go:embed prompts/question_user.md
var questionUserTemplate string

//go:embed prompts/rubric_system.md
var rubricSystemPrompt string

const (
	defaultMaxLogLength = 200
	maxFollowups        = 2
	maxBullets          = 7
	// rubricInputLimit caps the rubric text sent for summarization.
	rubricInputLimit = 6000
)

// PromptQuestioner implements Questioner on top of a Completer.
type PromptQuestioner struct {
	completer Completer
	logger    *zap.Logger
	maxLogLen int
}

func NewQuestioner(completer Completer, log *zap.Logger, maxLogLength int) *PromptQuestioner {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}

	return &PromptQuestioner{
		completer: completer,
		logger:    logger.WithCommonFields(log, completer.Provider(), completer.Model()),
		maxLogLen: maxLogLength,
	}
}

func (p *PromptQuestioner) GenerateQuestion(ctx context.Context, req QuestionRequest) (*Question, error) {
	user := buildQuestionPrompt(req)

	p.logger.Debug("question generation request",
		zap.String(logger.FieldDimension, req.Target.Dimension),
		zap.Int("snippets", len(req.Snippets)),
		zap.Int("prompt_length", utf8.RuneCountInString(user)),
		zap.String("prompt_preview", utils.TruncateForLog(user, p.maxLogLen)),
	)

	raw, err := p.completer.Complete(ctx, questionSystemPrompt, user)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("question generation response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, p.maxLogLen)),
	)

	return parseQuestion(raw)
}

func (p *PromptQuestioner) SummarizeRubric(ctx context.Context, rubric string) ([]string, error) {
	runes := []rune(strings.TrimSpace(rubric))
	if len(runes) > rubricInputLimit {
		runes = runes[:rubricInputLimit]
	}

	raw, err := p.completer.Complete(ctx, rubricSystemPrompt, string(runes))
	if err != nil {
		return nil, err
	}

	p.logger.Debug("rubric summary response",
		zap.String("response_preview", utils.TruncateForLog(raw, p.maxLogLen)),
	)

	return parseBullets(raw)
}

func buildQuestionPrompt(req QuestionRequest) string {
	var recent strings.Builder
	for _, turn := range req.RecentTurns {
		fmt.Fprintf(&recent, "%s: %s\n", turn.Actor, turn.Text)
	}
	if recent.Len() == 0 {
		recent.WriteString("(none)\n")
	}

	var snippets strings.Builder
	for _, s := range req.Snippets {
		fmt.Fprintf(&snippets, "[%s] %s\n", s.Citation(), s.Text)
	}
	if snippets.Len() == 0 {
		snippets.WriteString("(none)\n")
	}

	replacer := strings.NewReplacer(
		"{{ROLE}}", req.Role,
		"{{CANDIDATE}}", req.CandidateName,
		"{{DIMENSION}}", req.Target.Dimension,
		"{{DIFFICULTY}}", string(req.Target.Difficulty),
		"{{RECENT}}", strings.TrimRight(recent.String(), "\n"),
		"{{SNIPPETS}}", strings.TrimRight(snippets.String(), "\n"),
	)
	return replacer.Replace(questionUserTemplate)
}

func decodeJSONObject(raw string) (map[string]any, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse model response: %w", err)
	}
	return data, nil
}

func parseQuestion(raw string) (*Question, error) {
	data, err := decodeJSONObject(raw)
	if err != nil {
		return nil, err
	}

	citations, err := decodeCitations(data["rationale_citations"])
	if err != nil {
		return nil, err
	}
	delete(data, "rationale_citations")

	var q Question
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &q,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(data); err != nil {
		return nil, fmt.Errorf("decode question: %w", err)
	}

	q.Question = strings.TrimSpace(q.Question)
	q.Dimension = strings.TrimSpace(q.Dimension)
	q.Difficulty = strings.ToLower(strings.TrimSpace(q.Difficulty))
	q.Followups = compact(q.Followups, maxFollowups)
	q.RationaleCitations = citations

	return &q, nil
}

// decodeCitations requires a list of strings. Entries are trimmed but never dropped,
// so a blank or malformed citation still reaches the grounding checks.
func decodeCitations(raw any) ([]string, error) {
	if raw == nil {
		return nil, nil
	}

	var citations []string
	if err := mapstructure.Decode(raw, &citations); err != nil {
		return nil, fmt.Errorf("decode rationale_citations: %w", err)
	}
	for i, c := range citations {
		citations[i] = strings.TrimSpace(c)
	}
	return citations, nil
}

func parseBullets(raw string) ([]string, error) {
	data, err := decodeJSONObject(raw)
	if err != nil {
		return nil, err
	}

	var out struct {
		Bullets []string `mapstructure:"bullets"`
	}
	if err := mapstructure.WeakDecode(data, &out); err != nil {
		return nil, fmt.Errorf("decode bullets: %w", err)
	}

	bullets := compact(out.Bullets, maxBullets)
	if len(bullets) == 0 {
		return nil, errors.New("rubric summary has no bullets")
	}
	return bullets, nil
}

// compact trims entries, drops empty ones and keeps at most limit (0 means no limit).
func compact(items []string, limit int) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}
