// Package parser turns a quiz page's HTML into structured Instructions.
package parser

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"

	"quizsolver/internal/domain"
)

var (
	questionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`Q\d+\.\s*(.+?)(?:\.|$)`),
		regexp.MustCompile(`(?i)((?:scrape|get|calculate|find|download)\s+.+?)(?:\.|POST|$)`),
	}

	submitPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)POST\s+this\s+JSON\s+to\s+(https?://\S+/submit|/submit)`),
		regexp.MustCompile(`(?i)submit\s+to\s+(https?://\S+/submit|/submit)`),
		regexp.MustCompile(`https?://\S+/submit`),
		regexp.MustCompile(`/submit\b`),
	}

	codeHintPattern = regexp.MustCompile(`(?i)secret\s+code(?:\s+is)?[:\s]+(\S{4,})`)

	dataFileExts = []string{".csv", ".pdf", ".json", ".txt", ".xlsx"}

	relativeSourcePattern = regexp.MustCompile(`(?i)(?:scrape|visit|go\s+to|download)\s+(/[\w./?=&-]+)`)
)

// Parse extracts quiz instructions from HTML content.
func Parse(htmlContent string) domain.Instructions {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		// html.Parse only fails on reader errors; a string reader never does.
		return domain.Instructions{TaskType: domain.TaskGeneral, AnswerFormat: domain.FormatUnknown}
	}

	text := visibleText(doc)
	links := collectLinks(doc)

	inst := domain.Instructions{
		VisibleText: text,
	}

	inst.Question = extractQuestion(text)
	inst.DataSource = extractDataSource(text, links)
	inst.SubmitURL = extractSubmitURL(text)
	inst.TaskType = classifyTask(text)
	inst.AnswerFormat = classifyAnswerFormat(text)

	if m := codeHintPattern.FindStringSubmatch(text); m != nil {
		inst.CodeHint = m[1]
	}

	return inst
}

// visibleText returns the page text with script and style contents removed
// and whitespace collapsed.
func visibleText(doc *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteString(" ")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return strings.Join(strings.Fields(sb.String()), " ")
}

// collectLinks returns every href on the page, in document order.
func collectLinks(doc *html.Node) []string {
	var links []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "a" {
			for _, attr := range n.Attr {
				if attr.Key == "href" && attr.Val != "" {
					links = append(links, attr.Val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return links
}

func extractQuestion(text string) string {
	for _, p := range questionPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			q := strings.TrimSpace(m[1])
			q = strings.TrimSuffix(q, "POST")
			return strings.TrimSpace(q)
		}
	}

	// First meaningful phrase as a fallback.
	if len(text) > 100 {
		return strings.TrimSpace(text[:100])
	}
	if text != "" {
		return text
	}
	return ""
}

func extractDataSource(text string, links []string) string {
	// Download links win: an anchor to a data file is the clearest signal.
	for _, link := range links {
		lower := strings.ToLower(link)
		for _, ext := range dataFileExts {
			if strings.Contains(lower, ext) {
				return link
			}
		}
	}

	// Relative paths named in prose ("Scrape /demo-scrape-data").
	if m := relativeSourcePattern.FindStringSubmatch(text); m != nil {
		return m[1]
	}

	// API endpoints mentioned in text.
	if strings.Contains(strings.ToLower(text), "api") {
		if m := regexp.MustCompile(`https?://\S*api\S*`).FindString(text); m != "" {
			return strings.TrimRight(m, ".,")
		}
	}

	return ""
}

func extractSubmitURL(text string) string {
	for _, p := range submitPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			if len(m) > 1 {
				return m[1]
			}
			return m[0]
		}
	}
	return ""
}

func classifyTask(text string) domain.TaskType {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "sum", "total", "calculate", "count"):
		return domain.TaskCalculation
	case containsAny(lower, "download", "file", "pdf", "csv"):
		return domain.TaskExtraction
	case containsAny(lower, "api", "endpoint"):
		return domain.TaskAPICall
	case containsAny(lower, "scrape", "extract", "get secret"):
		return domain.TaskScrape
	default:
		return domain.TaskGeneral
	}
}

func classifyAnswerFormat(text string) domain.AnswerFormat {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, "number", "sum", "total", "count"):
		return domain.FormatNumber
	case containsAny(lower, "true", "false", "boolean"):
		return domain.FormatBoolean
	case containsAny(lower, "json", "object"):
		return domain.FormatJSON
	case containsAny(lower, "string", "text", "code"):
		return domain.FormatString
	default:
		return domain.FormatUnknown
	}
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
