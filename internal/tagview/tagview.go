// Package tagview reads the entity markup produced by the tag endpoint and
// renders it for the terminal.
package tagview

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Segment is a run of text, labelled when it is a recognized entity.
type Segment struct {
	Text  string
	Label string
}

// IsEntity reports whether the segment carries a label
func (s Segment) IsEntity() bool {
	return s.Label != ""
}

// Parse splits displaCy entity markup into segments. Each entity is a
// <mark> element whose trailing <span> holds the label:
//
//	<mark class="entity">Berlin <span>GPE</span></mark>
//
// Unknown elements are ignored and their text kept.
func Parse(markup string) ([]Segment, error) {
	z := html.NewTokenizer(strings.NewReader(markup))

	var (
		segments []Segment
		plain    strings.Builder
		entity   strings.Builder
		label    strings.Builder
		inMark   bool
		inLabel  bool
	)
	flushPlain := func() {
		if plain.Len() > 0 {
			segments = append(segments, Segment{Text: plain.String()})
			plain.Reset()
		}
	}

	for {
		switch z.Next() {
		case html.ErrorToken:
			if err := z.Err(); !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to parse tagged text: %w", err)
			}
			if inMark {
				return nil, errors.New("failed to parse tagged text: unterminated entity")
			}
			flushPlain()
			return segments, nil

		case html.StartTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "mark":
				flushPlain()
				inMark = true
				entity.Reset()
				label.Reset()
			case "span":
				inLabel = inMark
			case "br":
				writeText(inMark, inLabel, &plain, &entity, &label, "\n")
			}

		case html.SelfClosingTagToken:
			name, _ := z.TagName()
			if string(name) == "br" {
				writeText(inMark, inLabel, &plain, &entity, &label, "\n")
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "span":
				inLabel = false
			case "mark":
				if inMark {
					segments = append(segments, Segment{
						Text:  strings.TrimSpace(entity.String()),
						Label: strings.TrimSpace(label.String()),
					})
				}
				inMark = false
				inLabel = false
			}

		case html.TextToken:
			writeText(inMark, inLabel, &plain, &entity, &label, string(z.Text()))
		}
	}
}

func writeText(inMark, inLabel bool, plain, entity, label *strings.Builder, s string) {
	switch {
	case inLabel:
		label.WriteString(s)
	case inMark:
		entity.WriteString(s)
	default:
		plain.WriteString(s)
	}
}

// Plain renders segments as text with entities followed by their label in
// brackets, e.g. "Berlin [GPE]".
func Plain(segments []Segment) string {
	return Render(segments, func(s Segment) string {
		return fmt.Sprintf("%s [%s]", s.Text, s.Label)
	})
}

// Render joins segments, formatting entities with fn.
func Render(segments []Segment, fn func(Segment) string) string {
	var b strings.Builder
	for _, s := range segments {
		if s.IsEntity() {
			b.WriteString(fn(s))
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// Labels returns the distinct entity labels in order of first appearance.
func Labels(segments []Segment) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range segments {
		if s.IsEntity() && !seen[s.Label] {
			seen[s.Label] = true
			out = append(out, s.Label)
		}
	}
	return out
}
