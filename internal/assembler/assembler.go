// Package assembler packs reranked chunks into a bounded context block
// with citations.
package assembler

import (
	"fmt"
	"strings"

	"github.com/kuzminvik/ragbench/internal/reranker"
	"github.com/kuzminvik/ragbench/internal/vectorstore"
)

// Entry is one chunk admitted into the context, with its citation.
type Entry struct {
	Citation string `json:"citation"`
	Text     string `json:"text"`
}

// Context is the assembled, size-bounded context block.
type Context struct {
	Entries []Entry
	Size    int // total characters of admitted chunk text
	Omitted int // ranked candidates left out to respect the budget
}

// Assemble walks the ranked candidates in order, admitting each chunk
// whole until the next one would exceed maxChars. The overflowing
// candidate and everything after it are omitted and counted — a chunk
// is never truncated mid-text. An empty input yields an empty context,
// not an error; the RAG path still proceeds with the absence of
// context signaled explicitly in the prompt.
func Assemble(candidates []reranker.Scored, maxChars int) Context {
	var out Context
	for i, cand := range candidates {
		text := cand.Record.Text
		if maxChars > 0 && out.Size+len(text) > maxChars {
			out.Omitted = len(candidates) - i
			break
		}
		out.Entries = append(out.Entries, Entry{
			Citation: Citation(cand.Record),
			Text:     text,
		})
		out.Size += len(text)
	}
	return out
}

// Citation renders the source marker for a record.
func Citation(rec vectorstore.Record) string {
	if rec.Source.Section == "" {
		return rec.Source.DocumentID
	}
	return rec.Source.DocumentID + "#" + rec.Source.Section
}

// Prompt renders the generation prompt for a query. An empty context
// states explicitly that nothing relevant was found so the generation
// call can still proceed.
func (c Context) Prompt(query string) string {
	var sb strings.Builder

	if len(c.Entries) == 0 {
		sb.WriteString("No relevant context was found in the knowledge base.\n")
		sb.WriteString("Answer from general knowledge and say that no sources were available.\n\n")
	} else {
		sb.WriteString("## Context Documents\n\n")
		for i, entry := range c.Entries {
			sb.WriteString(fmt.Sprintf("[Doc %d] (Source: %s)\n", i+1, entry.Citation))
			sb.WriteString(entry.Text)
			sb.WriteString("\n\n")
		}
	}

	sb.WriteString("## Question\n")
	sb.WriteString(query)
	sb.WriteString("\n\n## Answer (be brief and direct)\n")

	return sb.String()
}
