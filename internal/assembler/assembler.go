// Package assembler maps cluster output onto the chapter/section
// hierarchy and generates chapter titles from member content.
package assembler

import (
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/bindery-cli/internal/cluster"
	"github.com/custodia-labs/bindery-cli/internal/core/domain"
)

// SectionPlan is one planned section and its chunk ids, in order.
type SectionPlan struct {
	Title    string
	ChunkIDs []string
}

// ChapterPlan is one planned chapter.
type ChapterPlan struct {
	Title    string
	Sections []SectionPlan
}

// minTokenLength filters out short tokens before frequency ranking.
const minTokenLength = 4

// stopWords are excluded from chapter title candidates.
var stopWords = map[string]struct{}{
	"about": {}, "after": {}, "again": {}, "also": {}, "back": {},
	"because": {}, "been": {}, "before": {}, "being": {}, "between": {},
	"both": {}, "could": {}, "does": {}, "doing": {}, "down": {},
	"each": {}, "even": {}, "every": {}, "from": {}, "further": {},
	"have": {}, "having": {}, "here": {}, "into": {}, "just": {},
	"like": {}, "made": {}, "make": {}, "many": {}, "more": {},
	"most": {}, "much": {}, "only": {}, "other": {}, "over": {},
	"same": {}, "should": {}, "some": {}, "somehow": {}, "such": {},
	"than": {}, "that": {}, "their": {}, "them": {}, "then": {},
	"there": {}, "these": {}, "they": {}, "this": {}, "those": {},
	"through": {}, "under": {}, "until": {}, "very": {}, "were": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"will": {}, "with": {}, "would": {}, "your": {},
}

// Assemble maps clusters onto chapter plans: one chapter per cluster
// with a single "Overview" section holding that cluster's chunk ids.
// Sub-clustering sections is a future extension.
func Assemble(clusters []cluster.Cluster, lookup map[string]*domain.Chunk) []ChapterPlan {
	plans := make([]ChapterPlan, 0, len(clusters))
	for i, c := range clusters {
		contents := make([]string, 0, len(c.Items))
		for _, id := range c.Items {
			if chunk, ok := lookup[id]; ok {
				contents = append(contents, chunk.Content)
			}
		}

		plans = append(plans, ChapterPlan{
			Title: ChapterTitle(i+1, contents),
			Sections: []SectionPlan{
				{Title: "Overview", ChunkIDs: c.Items},
			},
		})
	}
	return plans
}

// FileChapter builds the file-mode chapter plan: one chapter per
// source file with a single "Content" section, preserving chunk
// order.
func FileChapter(title string, chunkIDs []string) ChapterPlan {
	return ChapterPlan{
		Title: title,
		Sections: []SectionPlan{
			{Title: "Content", ChunkIDs: chunkIDs},
		},
	}
}

// ChapterTitle ranks the cluster's tokens by frequency and formats
// the top two as "Chapter N: Word1 & Word2". Tokens at or below three
// characters and stop words are discarded; when nothing survives the
// filter the bare "Chapter N" fallback is used.
func ChapterTitle(n int, contents []string) string {
	freq := make(map[string]int)
	for _, content := range contents {
		for _, token := range tokenize(content) {
			freq[token]++
		}
	}

	type ranked struct {
		token string
		count int
	}
	candidates := make([]ranked, 0, len(freq))
	for token, count := range freq {
		candidates = append(candidates, ranked{token, count})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].count != candidates[j].count {
			return candidates[i].count > candidates[j].count
		}
		return candidates[i].token < candidates[j].token
	})

	if len(candidates) == 0 {
		return fmt.Sprintf("Chapter %d", n)
	}

	words := make([]string, 0, 2)
	for _, c := range candidates[:min(2, len(candidates))] {
		words = append(words, titleCase(c.token))
	}
	return fmt.Sprintf("Chapter %d: %s", n, strings.Join(words, " & "))
}

// tokenize lowercases content, splits on non-letter runes and drops
// stop words and short tokens.
func tokenize(content string) []string {
	fields := strings.FieldsFunc(strings.ToLower(content), func(r rune) bool {
		return !unicode.IsLetter(r)
	})

	tokens := fields[:0]
	for _, f := range fields {
		if len(f) < minTokenLength {
			continue
		}
		if _, stop := stopWords[f]; stop {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

func titleCase(token string) string {
	runes := []rune(token)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
