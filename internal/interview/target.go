package interview

import (
	"fmt"
	"strings"

	"github.com/spigell/interview-brain/internal/ai"
)

// Dimensions is the ordered list of evaluation dimensions. Order breaks coverage ties.
var Dimensions = []string{
	"System Design",
	"Problem Solving",
	"Data/SQL",
	"Resume Projects",
	"Architecture Decisions",
	"Ownership",
	"Communication",
	"Leadership",
}

const (
	defaultMinutes  = 60
	maxIntroBullets = 7
)

// FirstTarget seeds every session regardless of coverage.
var FirstTarget = ai.Target{Dimension: "Resume Projects", Difficulty: ai.DifficultyEasy}

// DifficultyFor escalates with the number of questions already asked on a dimension.
func DifficultyFor(count int) ai.Difficulty {
	switch {
	case count < 2:
		return ai.DifficultyEasy
	case count < 4:
		return ai.DifficultyMedium
	default:
		return ai.DifficultyHard
	}
}

// SelectTarget picks the least covered dimension, the first one in Dimensions on ties.
func SelectTarget(coverage Coverage) ai.Target {
	best := Dimensions[0]
	bestCount := coverage[best]
	for _, dim := range Dimensions[1:] {
		if c := coverage[dim]; c < bestCount {
			best, bestCount = dim, c
		}
	}
	return ai.Target{Dimension: best, Difficulty: DifficultyFor(bestCount)}
}

func startFallback(citations []string) ai.Question {
	return ai.Question{
		Question:           "Could you briefly walk me through your most relevant project in your resume and your specific responsibilities?",
		Followups:          []string{"What were the key constraints and success metrics?"},
		Dimension:          FirstTarget.Dimension,
		Difficulty:         string(FirstTarget.Difficulty),
		RationaleCitations: citations,
	}
}

func nextFallback(target ai.Target, citations []string) ai.Question {
	return ai.Question{
		Question:           fmt.Sprintf("Staying on %s, could you share a concrete example from your resume that best demonstrates your skills here?", target.Dimension),
		Followups:          []string{"What tradeoffs did you consider?", "How did you validate success?"},
		Dimension:          target.Dimension,
		Difficulty:         string(target.Difficulty),
		RationaleCitations: citations,
	}
}

// Intro renders the opening turn of an interview.
func Intro(candidate, role string, minutes int, bullets []string) string {
	if minutes <= 0 {
		minutes = defaultMinutes
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s, I'm your AI interviewer for the %s role. ", candidate, role)
	fmt.Fprintf(&b, "Here's how today will work: we'll spend ~%d minutes on technical and behavioral topics. ", minutes)
	b.WriteString("I'll ask questions grounded in your resume and the provided rubric, and I may probe with follow-ups. ")
	b.WriteString("We're looking at the following signals:\n")
	for _, bullet := range bullets {
		fmt.Fprintf(&b, "• %s\n", bullet)
	}
	b.WriteString("We'll keep it conversational, so feel free to ask clarifying questions. Ready?")
	return b.String()
}

// rubricLines is used when the rubric cannot be summarized.
func rubricLines(rubric string) []string {
	var out []string
	for _, line := range strings.Split(rubric, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• ")
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
		if len(out) == maxIntroBullets {
			break
		}
	}
	return out
}
