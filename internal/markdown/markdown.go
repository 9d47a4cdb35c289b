// Package markdown renders the small markdown subset used for card content
// into sanitized HTML fragments. Raw markup in the input is stripped and the
// remainder escaped before any transform runs, so card text can never inject
// live HTML into a page.
//
// Render expects markdown source, never its own output; re-rendering rendered
// HTML is unsupported.
package markdown

import (
	"regexp"
	"strings"
)

const placeholder = `<div class="markdown-content"><p>No content</p></div>`

var (
	reRawTag     = regexp.MustCompile(`<[^>]*>`)
	reWhitespace = regexp.MustCompile(`\s{2,}`)
	reCodeBlock  = regexp.MustCompile("(?s)```(.*?)```")
	reInlineCode = regexp.MustCompile("`([^`]+)`")
	reBoldStar   = regexp.MustCompile(`\*\*([^*]+?)\*\*`)
	reBoldUnder  = regexp.MustCompile(`__([^_]+?)__`)
	reItalStar   = regexp.MustCompile(`\*([^*\n]+?)\*`)
	reItalUnder  = regexp.MustCompile(`_([^_\n]+?)_`)
	reLink       = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)
	reH3         = regexp.MustCompile(`(?m)^### ([^\n]+)$`)
	reH2         = regexp.MustCompile(`(?m)^## ([^\n]+)$`)
	reH1         = regexp.MustCompile(`(?m)^# ([^\n]+)$`)
	reRule       = regexp.MustCompile(`(?m)^---$`)
	reOrdered    = regexp.MustCompile(`^\d+\.\s+`)
	reUnordered  = regexp.MustCompile(`^[-*]\s+`)
	reBreakRun   = regexp.MustCompile(`(<br />){2,}`)
	reRuleRun    = regexp.MustCompile(`(<hr />){2,}`)

	escaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&#39;",
	)
)

// Render converts markdown source into a sanitized HTML fragment wrapped in a
// single container element. Empty input yields a fixed placeholder.
//
// The step order is fixed: sanitation (tag strip, whitespace collapse, escape)
// must run before any markdown transform, code spans before emphasis, bold
// before italic, and list grouping before newline conversion.
func Render(text string) string {
	if text == "" {
		return placeholder
	}

	// Drop embedded raw markup, keeping its inner text.
	html := reRawTag.ReplaceAllString(text, "")
	html = reWhitespace.ReplaceAllString(html, " ")
	html = strings.TrimSpace(html)

	html = escaper.Replace(html)

	html = reCodeBlock.ReplaceAllStringFunc(html, func(m string) string {
		code := reCodeBlock.FindStringSubmatch(m)[1]
		return "<pre><code>" + strings.TrimSpace(code) + "</code></pre>"
	})
	html = reInlineCode.ReplaceAllString(html, "<code>$1</code>")

	html = reBoldStar.ReplaceAllString(html, "<strong>$1</strong>")
	html = reBoldUnder.ReplaceAllString(html, "<strong>$1</strong>")

	// Italic runs after bold so single markers cannot eat into a bold span.
	html = reItalStar.ReplaceAllString(html, "<em>$1</em>")
	html = reItalUnder.ReplaceAllString(html, "<em>$1</em>")

	html = reLink.ReplaceAllString(html, `<a href="$2" target="_blank" rel="noopener">$1</a>`)

	html = reH3.ReplaceAllString(html, "<h3>$1</h3>")
	html = reH2.ReplaceAllString(html, "<h2>$1</h2>")
	html = reH1.ReplaceAllString(html, "<h1>$1</h1>")

	html = reRule.ReplaceAllString(html, "<hr />")

	html = groupLists(html, reOrdered, "<ol>", "</ol>")
	html = groupLists(html, reUnordered, "<ul>", "</ul>")

	html = strings.ReplaceAll(html, "\n", "<br />")

	html = reBreakRun.ReplaceAllString(html, "<br />")
	html = reRuleRun.ReplaceAllString(html, "<hr />")
	html = strings.ReplaceAll(html, "<br /><hr />", "<hr />")
	html = strings.ReplaceAll(html, "<hr /><br />", "<hr />")

	return `<div class="markdown-content">` + html + `</div>`
}

// groupLists folds runs of consecutive list-marker lines into a single list
// element. It scans line by line over the not-yet-converted text, closing the
// open list when a non-list or blank line appears; blank lines are dropped.
func groupLists(html string, marker *regexp.Regexp, open, close string) string {
	lines := strings.Split(html, "\n")
	var out []string
	var list strings.Builder
	inList := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if marker.MatchString(trimmed) {
			if !inList {
				list.WriteString(open)
				inList = true
			}
			list.WriteString("<li>" + marker.ReplaceAllString(trimmed, "") + "</li>")
			continue
		}
		if inList {
			list.WriteString(close)
			out = append(out, list.String())
			list.Reset()
			inList = false
		}
		if trimmed != "" {
			out = append(out, line)
		}
	}
	if inList {
		list.WriteString(close)
		out = append(out, list.String())
	}
	return strings.Join(out, "\n")
}

var (
	stripCodeBlock  = regexp.MustCompile("(?s)```.*?```")
	stripHeading    = regexp.MustCompile(`(?m)^[#\s]+`)
	stripRule       = regexp.MustCompile(`(?m)^---$`)
	stripBulletItem = regexp.MustCompile(`(?m)^\s*[-*]\s+`)
	stripNumberItem = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
)

// StripToPlainText removes all markdown markers from text, keeping the inner
// text, for plain previews. Code block contents are dropped entirely. This is
// a textual strip, not a parse: unmatched or partial markers pass through
// untouched.
func StripToPlainText(text string) string {
	if text == "" {
		return ""
	}
	s := stripCodeBlock.ReplaceAllString(text, "")
	s = reInlineCode.ReplaceAllString(s, "$1")
	s = reBoldStar.ReplaceAllString(s, "$1")
	s = reBoldUnder.ReplaceAllString(s, "$1")
	s = reItalStar.ReplaceAllString(s, "$1")
	s = reItalUnder.ReplaceAllString(s, "$1")
	s = reLink.ReplaceAllString(s, "$1")
	s = stripHeading.ReplaceAllString(s, "")
	s = stripRule.ReplaceAllString(s, "")
	s = stripBulletItem.ReplaceAllString(s, "")
	s = stripNumberItem.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}
