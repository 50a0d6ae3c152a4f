// Package chunker splits text into token-bounded chunks along paragraph,
// sentence and word boundaries.
package chunker

import (
	"errors"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/tokenizer"
)

// ErrInvalidBudget is returned for a non-positive token budget.
var ErrInvalidBudget = errors.New("chunker: budget must be positive")

const (
	paragraphSep = "\n\n"
	sentenceSep  = ". "
)

type level int

const (
	levelParagraph level = iota
	levelSentence
	levelWord
)

// unit is a piece of text and the separator that followed it in the source.
type unit struct {
	text string
	sep  string
}

// Chunker splits text so that every chunk fits a token budget.
type Chunker struct {
	counter tokenizer.Counter
}

// New creates a Chunker measuring with the given counter.
func New(counter tokenizer.Counter) *Chunker {
	return &Chunker{counter: counter}
}

// Split returns the chunks of text in document order.
//
// Paragraphs are packed greedily while the packed text stays within budget.
// A paragraph over budget is broken into sentences, a sentence over budget into words.
// A single word over budget is emitted as its own chunk.
// JoinChunks over the result reproduces text exactly.
func (c *Chunker) Split(text string, budget int) ([]domain.Chunk, error) {
	if budget <= 0 {
		return nil, ErrInvalidBudget
	}
	if n := c.counter.Count(text); n <= budget {
		return []domain.Chunk{{Index: 0, Text: text, TokenCount: n}}, nil
	}

	var atoms []unit
	for _, p := range splitOn(text, paragraphSep) {
		atoms = c.appendAtoms(atoms, p, budget, levelParagraph)
	}
	return c.pack(atoms, budget), nil
}

// appendAtoms appends u, or its finer-grained pieces when u is over budget.
func (c *Chunker) appendAtoms(dst []unit, u unit, budget int, lvl level) []unit {
	if lvl == levelWord || c.counter.Count(u.text) <= budget {
		return append(dst, u)
	}

	var parts []unit
	if lvl == levelParagraph {
		parts = splitSentences(u.text)
	} else {
		parts = splitWords(u.text)
	}
	parts[len(parts)-1].sep += u.sep

	for _, p := range parts {
		dst = c.appendAtoms(dst, p, budget, lvl+1)
	}
	return dst
}

// pack merges consecutive atoms while the merged text fits the budget.
func (c *Chunker) pack(atoms []unit, budget int) []domain.Chunk {
	var (
		chunks []domain.Chunk
		cur    string
		curSep string
		open   bool
	)
	flush := func() {
		if !open {
			return
		}
		chunks = append(chunks, domain.Chunk{
			Index:      len(chunks),
			Text:       cur,
			Sep:        curSep,
			TokenCount: c.counter.Count(cur),
		})
		cur, curSep, open = "", "", false
	}

	for _, a := range atoms {
		if open {
			candidate := cur + curSep + a.text
			if c.counter.Count(candidate) <= budget {
				cur, curSep = candidate, a.sep
				continue
			}
			flush()
		}
		cur, curSep, open = a.text, a.sep, true
	}
	flush()
	return chunks
}

// splitOn splits s on sep, keeping sep as the trailing separator of every piece but the last.
func splitOn(s, sep string) []unit {
	parts := strings.Split(s, sep)
	units := make([]unit, len(parts))
	for i, p := range parts {
		units[i] = unit{text: p}
		if i < len(parts)-1 {
			units[i].sep = sep
		}
	}
	return units
}

// splitSentences splits on ". " and keeps the period with its sentence.
func splitSentences(s string) []unit {
	units := splitOn(s, sentenceSep)
	for i := range units[:len(units)-1] {
		units[i].text += "."
		units[i].sep = " "
	}
	return units
}

// splitWords splits on whitespace runs. Leading whitespace stays with the first word.
func splitWords(s string) []unit {
	var units []unit
	start := 0
	i := skip(s, 0, true)
	for i < len(s) {
		wordEnd := skip(s, i, false)
		sepEnd := skip(s, wordEnd, true)
		units = append(units, unit{text: s[start:wordEnd], sep: s[wordEnd:sepEnd]})
		start, i = sepEnd, sepEnd
	}
	if len(units) == 0 {
		return []unit{{text: s}}
	}
	return units
}

// skip advances from i over runes that are (space=true) or are not (space=false) whitespace.
func skip(s string, i int, space bool) int {
	for i < len(s) {
		r, size := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) != space {
			break
		}
		i += size
	}
	return i
}
