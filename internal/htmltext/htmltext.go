// Package htmltext flattens notice HTML into plain text suitable for LLM
// prompts. Tables become pipe-delimited rows so tabular shortlists survive
// the conversion.
package htmltext

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	runSpaces  = regexp.MustCompile(`[ \t]+`)
)

// Flatten converts an HTML fragment to plain text. Table rows are rendered
// as "cell | cell | cell" lines; paragraphs, list items, and line breaks
// become newlines. Input that is not HTML passes through trimmed.
func Flatten(html string) (string, error) {
	if !strings.Contains(html, "<") {
		return strings.TrimSpace(html), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", eris.Wrap(err, "parsing notice HTML")
	}

	doc.Find("script, style").Remove()

	// Render tables as delimited rows, then remove them so the fallback
	// text pass does not duplicate their contents.
	var tables []string
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		var rows []string
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			var cells []string
			tr.Find("th, td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, collapse(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, strings.Join(cells, " | "))
			}
		})
		if len(rows) > 0 {
			tables = append(tables, strings.Join(rows, "\n"))
		}
		table.Remove()
	})

	doc.Find("br").Each(func(_ int, br *goquery.Selection) {
		br.ReplaceWithHtml("\n")
	})
	doc.Find("p, li, div, h1, h2, h3, h4, h5, h6").Each(func(_ int, block *goquery.Selection) {
		block.AppendHtml("\n")
	})

	text := doc.Text()
	parts := append([]string{text}, tables...)
	out := strings.Join(parts, "\n\n")

	out = runSpaces.ReplaceAllString(out, " ")
	lines := strings.Split(out, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	out = strings.Join(lines, "\n")
	out = blankLines.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out), nil
}

func collapse(s string) string {
	return strings.TrimSpace(runSpaces.ReplaceAllString(strings.ReplaceAll(s, "\n", " "), " "))
}
