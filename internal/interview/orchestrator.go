package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/spigell/interview-brain/internal/ai"
	"github.com/spigell/interview-brain/internal/content"
	"github.com/spigell/interview-brain/internal/grounding"
	"github.com/spigell/interview-brain/internal/indexer"
	"github.com/spigell/interview-brain/internal/logger"
	"github.com/spigell/interview-brain/internal/retrieval"
	"github.com/spigell/interview-brain/internal/vectorstore"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrInvalidSession = errors.New("invalid session")
)

const (
	DefaultCallTimeout   = 20 * time.Second
	DefaultHistoryWindow = 8
)

type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Reason explains why a fallback question was used.
type Reason string

const (
	ReasonRetrievalFailed   Reason = "retrieval_failed"
	ReasonGenerationFailed  Reason = "generation_failed"
	ReasonGenerationTimeout Reason = "generation_timeout"
	ReasonUngrounded        Reason = "ungrounded"
)

// Outcome is the question asked on a turn and where it came from.
type Outcome struct {
	Question ai.Question `json:"question"`
	Source   Source      `json:"source"`
	Reason   Reason      `json:"reason,omitempty"`
}

type StartResult struct {
	SessionID string   `json:"session_id"`
	Intro     string   `json:"intro"`
	Outcome   Outcome  `json:"outcome"`
	Coverage  Coverage `json:"coverage"`
}

type NextResult struct {
	Outcome  Outcome  `json:"outcome"`
	Coverage Coverage `json:"coverage"`
}

// ContentSource resolves rubrics and resumes.
type ContentSource interface {
	Rubric(role string) (string, error)
	Resume(candidate, role string) (string, error)
	Documents() []content.Document
}

type DocumentIndexer interface {
	Index(ctx context.Context, docs []content.Document) (indexer.Result, error)
	Status() indexer.Status
}

type Retriever interface {
	Retrieve(ctx context.Context, queries []string, filter vectorstore.Filter) (retrieval.Result, error)
}

type Validator interface {
	Validate(q *ai.Question, retrieved []string) grounding.Verdict
}

type Config struct {
	Content    ContentSource
	Indexer    DocumentIndexer
	Retriever  Retriever
	Questioner ai.Questioner
	Validator  Validator
	Store      Store

	CallTimeout   time.Duration
	HistoryWindow int
	Registerer    prometheus.Registerer
}

// Orchestrator drives interview sessions.
type Orchestrator struct {
	content    ContentSource
	indexer    DocumentIndexer
	retriever  Retriever
	questioner ai.Questioner
	validator  Validator
	store      Store

	callTimeout   time.Duration
	historyWindow int
	metrics       *metrics
	locks         keyedMutex
	logger        *zap.Logger

	newID func() string
	now   func() time.Time
}

func NewOrchestrator(cfg Config, log *zap.Logger) (*Orchestrator, error) {
	switch {
	case cfg.Content == nil:
		return nil, errors.New("content source is required")
	case cfg.Indexer == nil:
		return nil, errors.New("indexer is required")
	case cfg.Retriever == nil:
		return nil, errors.New("retriever is required")
	case cfg.Questioner == nil:
		return nil, errors.New("questioner is required")
	}

	if cfg.Validator == nil {
		cfg.Validator = grounding.ForPolicy(grounding.PolicySyntactic, log)
	}
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = DefaultHistoryWindow
	}
	if log == nil {
		log = zap.NewNop()
	}

	m, err := newMetrics(cfg.Registerer)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}

	return &Orchestrator{
		content:       cfg.Content,
		indexer:       cfg.Indexer,
		retriever:     cfg.Retriever,
		questioner:    cfg.Questioner,
		validator:     cfg.Validator,
		store:         cfg.Store,
		callTimeout:   cfg.CallTimeout,
		historyWindow: cfg.HistoryWindow,
		metrics:       m,
		logger:        log,
		newID:         uuid.NewString,
		now:           time.Now,
	}, nil
}

// IndexAllContent indexes every document of the content source. Unchanged documents are skipped.
func (o *Orchestrator) IndexAllContent(ctx context.Context) (indexer.Result, error) {
	return o.indexer.Index(ctx, o.content.Documents())
}

func (o *Orchestrator) IndexStatus() indexer.Status {
	return o.indexer.Status()
}

// Session returns a snapshot of the session transcript and coverage.
func (o *Orchestrator) Session(ctx context.Context, id string) (*Session, error) {
	return o.store.Get(ctx, id)
}

// Start opens a new interview and asks the first question.
func (o *Orchestrator) Start(ctx context.Context, candidate, role string, minutes int) (*StartResult, error) {
	candidate = strings.TrimSpace(candidate)
	role = strings.TrimSpace(role)

	rubric, err := o.content.Rubric(role)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if _, err := o.content.Resume(candidate, role); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	if minutes <= 0 {
		minutes = defaultMinutes
	}

	if _, err := o.IndexAllContent(ctx); err != nil {
		o.logger.Warn("indexing before session start failed", zap.Error(err))
	}

	sess := &Session{
		ID:            o.newID(),
		CandidateName: candidate,
		Role:          role,
		Minutes:       minutes,
		Coverage:      Coverage{},
		StartedAt:     o.now(),
	}

	unlock := o.locks.Lock(sess.ID)
	defer unlock()

	if err := o.store.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	o.metrics.sessionsStarted.Inc()

	log := logger.WithFields(o.logger, logger.SessionFields(sess.ID, candidate, role)...)
	log.Info("interview started", zap.Int("minutes", minutes))

	intro := Intro(candidate, role, minutes, o.introBullets(ctx, log, rubric))
	if err := o.appendTurn(ctx, sess.ID, ActorAI, intro, nil); err != nil {
		return nil, err
	}

	queries := retrieval.Bundle(candidate, role, "", FirstTarget.Dimension)
	outcome, err := o.ask(ctx, log, sess, FirstTarget, queries, startFallback)
	if err != nil {
		return nil, err
	}

	coverage, err := o.record(ctx, sess.ID, outcome)
	if err != nil {
		return nil, err
	}

	return &StartResult{SessionID: sess.ID, Intro: intro, Outcome: outcome, Coverage: coverage}, nil
}

// Next records the candidate answer and asks the next question.
func (o *Orchestrator) Next(ctx context.Context, id, answer string) (*NextResult, error) {
	// Unknown ids must not leave a lock behind.
	if _, err := o.store.Get(ctx, id); err != nil {
		return nil, err
	}

	unlock := o.locks.Lock(id)
	defer unlock()

	sess, err := o.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := o.appendTurn(ctx, id, ActorCandidate, answer, nil); err != nil {
		return nil, err
	}

	log := logger.WithFields(o.logger, logger.SessionFields(id, sess.CandidateName, sess.Role)...)

	target := SelectTarget(sess.Coverage)
	queries := retrieval.Bundle(sess.CandidateName, sess.Role, answer, target.Dimension)
	outcome, err := o.ask(ctx, log, sess, target, queries, func(citations []string) ai.Question {
		return nextFallback(target, citations)
	})
	if err != nil {
		return nil, err
	}

	coverage, err := o.record(ctx, id, outcome)
	if err != nil {
		return nil, err
	}

	return &NextResult{Outcome: outcome, Coverage: coverage}, nil
}

func (o *Orchestrator) introBullets(ctx context.Context, log *zap.Logger, rubric string) []string {
	cctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	started := o.now()
	bullets, err := o.questioner.SummarizeRubric(cctx, rubric)
	o.observe("summarize", started)
	if err != nil {
		log.Warn("rubric summary failed, using rubric lines", zap.Error(err))
		return rubricLines(rubric)
	}
	return bullets
}

// ask runs retrieval and generation for target. Failures of either end in the fallback question.
func (o *Orchestrator) ask(ctx context.Context, log *zap.Logger, sess *Session, target ai.Target, queries []string, fallback func([]string) ai.Question) (Outcome, error) {
	log = log.With(zap.String(logger.FieldDimension, target.Dimension), zap.String("difficulty", string(target.Difficulty)))

	rctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	started := o.now()
	retrieved, err := o.retriever.Retrieve(rctx, queries, vectorstore.Filter{vectorstore.KeyRole: sess.Role})
	o.observe("retrieve", started)
	cancel()
	if err != nil {
		return o.fallback(log, fallback(nil), ReasonRetrievalFailed, err), nil
	}
	citations := retrieved.Citations

	recent, err := o.store.RecentTurns(ctx, sess.ID, o.historyWindow)
	if err != nil {
		return Outcome{}, err
	}
	history := make([]ai.HistoryEntry, 0, len(recent))
	for _, turn := range recent {
		history = append(history, ai.HistoryEntry{Actor: string(turn.Actor), Text: turn.Text})
	}

	gctx, cancel := context.WithTimeout(ctx, o.callTimeout)
	defer cancel()

	started = o.now()
	q, err := o.questioner.GenerateQuestion(gctx, ai.QuestionRequest{
		CandidateName: sess.CandidateName,
		Role:          sess.Role,
		Target:        target,
		Snippets:      retrieved.Snippets,
		RecentTurns:   history,
	})
	o.observe("generate", started)
	if err == nil && q == nil {
		err = errors.New("questioner returned no question")
	}
	if err != nil {
		reason := ReasonGenerationFailed
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded) {
			reason = ReasonGenerationTimeout
		}
		return o.fallback(log, fallback(citations), reason, err), nil
	}

	if verdict := o.validator.Validate(q, citations); !verdict.Grounded {
		return o.fallback(log, fallback(citations), ReasonUngrounded, errors.New(verdict.Reason)), nil
	}

	if q.Dimension == "" {
		q.Dimension = target.Dimension
	}
	if q.Difficulty == "" {
		q.Difficulty = string(target.Difficulty)
	}

	outcome := Outcome{Question: *q, Source: SourceGenerated}
	o.metrics.question(outcome)
	log.Debug("question generated", zap.Strings("citations", q.RationaleCitations))
	return outcome, nil
}

func (o *Orchestrator) fallback(log *zap.Logger, q ai.Question, reason Reason, cause error) Outcome {
	if q.RationaleCitations == nil {
		q.RationaleCitations = []string{}
	}
	outcome := Outcome{Question: q, Source: SourceFallback, Reason: reason}
	o.metrics.question(outcome)
	log.Warn("using fallback question", zap.String("reason", string(reason)), zap.Error(cause))
	return outcome
}

// record appends the asked question and counts it against its realized dimension.
func (o *Orchestrator) record(ctx context.Context, id string, outcome Outcome) (Coverage, error) {
	if err := o.appendTurn(ctx, id, ActorAI, outcome.Question.Question, outcome.Question.RationaleCitations); err != nil {
		return nil, err
	}
	coverage, err := o.store.IncrementCoverage(ctx, id, outcome.Question.Dimension)
	if err != nil {
		return nil, fmt.Errorf("update coverage: %w", err)
	}
	return coverage, nil
}

func (o *Orchestrator) appendTurn(ctx context.Context, id string, actor Actor, text string, citations []string) error {
	if err := o.store.AppendTurn(ctx, id, Turn{Actor: actor, Text: text, Citations: citations, At: o.now()}); err != nil {
		return fmt.Errorf("append %s turn: %w", actor, err)
	}
	return nil
}

func (o *Orchestrator) observe(call string, started time.Time) {
	o.metrics.callSeconds.WithLabelValues(call).Observe(o.now().Sub(started).Seconds())
}
