// Package card turns the host's raw flashcard markup into plain text suitable
// as grounding context for the chat provider.
package card

import (
	"html"
	"regexp"
	"strings"

	"github.com/haleth/cardchat/internal/models"
)

var (
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	soundRe = regexp.MustCompile(`\[sound:[^\]]*\]`)
	clozeRe = regexp.MustCompile(`\{\{c\d+::([^:}]*)(?:::[^}]*)?\}\}`)
	spaceRe = regexp.MustCompile(`\s+`)
)

// StripHTML removes HTML tags, sound tags and cloze markers from card markup,
// decodes entities and collapses whitespace. Cloze deletions keep their inner
// text so the model sees the full fact.
func StripHTML(s string) string {
	s = soundRe.ReplaceAllString(s, " ")
	s = clozeRe.ReplaceAllString(s, "$1")
	s = tagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// BuildContext assembles the read-only context string for a card. The back is
// omitted when empty or identical to the front, matching how hosts render
// front-only cards.
func BuildContext(card models.CardContext) string {
	front := StripHTML(card.Front)
	back := StripHTML(card.Back)

	if front == "" && back == "" {
		return ""
	}
	if back == "" || back == front {
		return "Front: " + front
	}
	if front == "" {
		return "Back: " + back
	}
	return "Front: " + front + "\nBack: " + back
}
