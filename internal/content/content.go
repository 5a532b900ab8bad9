package content

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when no rubric or resume exists for the requested key.
var ErrNotFound = errors.New("content not found")

// DocType distinguishes the two kinds of indexed documents.
type DocType string

const (
	TypeRubric DocType = "rubric"
	TypeResume DocType = "resume"
)

// Document is a single indexable text together with the metadata stored next to its chunks.
type Document struct {
	ID            string
	Type          DocType
	Role          string
	CandidateName string
	Text          string
}

type resumeKey struct {
	candidate string
	role      string
}

// Store maps roles to rubrics and (candidate, role) pairs to resumes.
// It is populated once at startup and read concurrently afterwards.
type Store struct {
	rubrics map[string]string
	resumes map[resumeKey]string
}

func New() *Store {
	return &Store{
		rubrics: make(map[string]string),
		resumes: make(map[resumeKey]string),
	}
}

// RubricID returns the document id used for a role rubric.
func RubricID(role string) string {
	return fmt.Sprintf("rubric::%s", role)
}

// ResumeID returns the document id used for a candidate resume.
func ResumeID(candidate, role string) string {
	return fmt.Sprintf("resume::%s::%s", candidate, role)
}

func (s *Store) AddRubric(role, text string) {
	s.rubrics[strings.TrimSpace(role)] = strings.TrimSpace(text)
}

func (s *Store) AddResume(candidate, role, text string) {
	key := resumeKey{candidate: strings.TrimSpace(candidate), role: strings.TrimSpace(role)}
	s.resumes[key] = strings.TrimSpace(text)
}

// Rubric returns the rubric text for the role.
func (s *Store) Rubric(role string) (string, error) {
	text, ok := s.rubrics[role]
	if !ok {
		return "", fmt.Errorf("rubric for role %q: %w", role, ErrNotFound)
	}
	return text, nil
}

// Resume returns the resume text for the candidate applying to the role.
func (s *Store) Resume(candidate, role string) (string, error) {
	text, ok := s.resumes[resumeKey{candidate: candidate, role: role}]
	if !ok {
		return "", fmt.Errorf("resume for %q as %q: %w", candidate, role, ErrNotFound)
	}
	return text, nil
}

// Roles returns all roles with a rubric, sorted.
func (s *Store) Roles() []string {
	roles := make([]string, 0, len(s.rubrics))
	for role := range s.rubrics {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	return roles
}

// Documents returns every rubric and resume as indexable documents.
// Rubrics come first ordered by role, then resumes ordered by role and candidate.
func (s *Store) Documents() []Document {
	docs := make([]Document, 0, len(s.rubrics)+len(s.resumes))

	for _, role := range s.Roles() {
		docs = append(docs, Document{
			ID:   RubricID(role),
			Type: TypeRubric,
			Role: role,
			Text: s.rubrics[role],
		})
	}

	keys := make([]resumeKey, 0, len(s.resumes))
	for key := range s.resumes {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].role != keys[j].role {
			return keys[i].role < keys[j].role
		}
		return keys[i].candidate < keys[j].candidate
	})

	for _, key := range keys {
		docs = append(docs, Document{
			ID:            ResumeID(key.candidate, key.role),
			Type:          TypeResume,
			Role:          key.role,
			CandidateName: key.candidate,
			Text:          s.resumes[key],
		})
	}

	return docs
}

// Len returns the number of documents in the store.
func (s *Store) Len() int {
	return len(s.rubrics) + len(s.resumes)
}
