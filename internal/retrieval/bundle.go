package retrieval

import "fmt"

// followUpPrefix bounds how much of the last answer goes into the follow-up query.
const followUpPrefix = 300

// Bundle builds the search queries for one question. The rubric and resume queries
// are always present; dimension and lastAnswer add queries when non-empty.
func Bundle(candidate, role, lastAnswer, dimension string) []string {
	queries := []string{
		fmt.Sprintf("%s interview rubric criteria", role),
		fmt.Sprintf("%s resume details for %s", candidate, role),
	}

	if dimension != "" {
		queries = append(queries,
			fmt.Sprintf("%s rubric for %s", role, dimension),
			fmt.Sprintf("resume achievements related to %s for %s", dimension, candidate),
		)
	}

	if lastAnswer != "" {
		runes := []rune(lastAnswer)
		if len(runes) > followUpPrefix {
			runes = runes[:followUpPrefix]
		}
		queries = append(queries, fmt.Sprintf("follow-up on: %s", string(runes)))
	}

	return queries
}
