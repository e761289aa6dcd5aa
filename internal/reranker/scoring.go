package reranker

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// maxScoringChars truncates candidate text sent to the scorer to keep
// the prompt inside small-model context windows.
const maxScoringChars = 500

// buildScoringPrompt constructs the per-candidate relevance prompt.
// Truncation backs up to a rune boundary so multi-byte text is never
// cut mid-character.
func buildScoringPrompt(query, text string) string {
	if len(text) > maxScoringChars {
		cut := maxScoringChars
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut] + "..."
	}

	var sb strings.Builder
	sb.WriteString("You are a relevance scoring system.\n\n")
	sb.WriteString("Query: ")
	sb.WriteString(query)
	sb.WriteString("\n\nDocument:\n")
	sb.WriteString(text)
	sb.WriteString("\n\nScore the document's relevance to the query from 0.0 to 1.0.\n")
	sb.WriteString("Be strict: irrelevant below 0.3, somewhat relevant 0.3-0.7, highly relevant above 0.7.\n")
	sb.WriteString("Output ONLY the number, no explanation:")
	return sb.String()
}

var scorePattern = regexp.MustCompile(`[-+]?\d*\.?\d+`)

// parseScore extracts the first number from the scorer's response and
// clamps it to [0, 1]. Small models pad the number with prose often
// enough that strict parsing would drop good judgments.
func parseScore(response string) (float64, error) {
	match := scorePattern.FindString(response)
	if match == "" {
		return 0, errors.New("no number in scoring response")
	}

	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, err
	}

	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return score, nil
}
