package content

import (
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// Format selects how a scraped body is presented to the agent.
type Format string

const (
	FormatRaw      Format = "raw"
	FormatMarkdown Format = "markdown"
	FormatReadable Format = "readable"
)

// Formats lists the accepted values, in the order shown to agents.
var Formats = []string{string(FormatRaw), string(FormatMarkdown), string(FormatReadable)}

// ParseFormat maps an argument value to a Format. Empty means raw.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatRaw:
		return FormatRaw, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatReadable:
		return FormatReadable, nil
	}
	return "", errors.Newf("unknown format %q: expected one of %s", s, strings.Join(Formats, ", "))
}

// Convert renders body in the requested format. Non-HTML bodies are returned unchanged,
// and each conversion falls back to the previous stage when it fails.
func Convert(body, pageURL string, format Format) string {
	if format == FormatRaw || !LooksLikeHTML(body) {
		return body
	}

	if format == FormatReadable {
		readable, err := processHTMLContent(body, pageURL)
		if err == nil {
			return readable
		}
		zap.S().Warnw("failed to process HTML content with readability, falling back to basic conversion",
			"url", pageURL, "error", err)
	}

	markdown, err := convertHTMLToMarkdown(body)
	if err != nil {
		zap.S().Warnw("HTML conversion failed, returning raw body", "url", pageURL, "error", err)
		return body
	}
	return markdown
}

// LooksLikeHTML is a cheap sniff on the first bytes of body.
func LooksLikeHTML(body string) bool {
	head := body
	if len(head) > 512 {
		head = head[:512]
	}
	head = strings.ToLower(strings.TrimSpace(head))
	return strings.HasPrefix(head, "<!doctype html") ||
		strings.HasPrefix(head, "<html") ||
		strings.Contains(head, "<head") ||
		strings.Contains(head, "<body")
}

// Title returns the document title of an HTML body, or "" when there is none.
func Title(body string) string {
	if !LooksLikeHTML(body) {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return ""
	}
	return strings.Join(strings.Fields(doc.Find("title").First().Text()), " ")
}

// processHTMLContent extracts the main content with readability and converts it to Markdown.
func processHTMLContent(htmlContent, urlStr string) (string, error) {
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", errors.Wrap(err, "failed to parse URL")
	}

	article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL)
	if err != nil {
		return "", errors.Wrap(err, "failed to extract content with readability")
	}
	if strings.TrimSpace(article.Content) == "" {
		return "", errors.New("readability found no content")
	}

	markdown, err := convertHTMLToMarkdown(article.Content)
	if err != nil {
		return "", err
	}

	if article.Title != "" {
		markdown = "# " + article.Title + "\n\n" + markdown
	}
	if article.Byline != "" {
		markdown = markdown + "\n\n---\n\nAuthor: " + article.Byline
	}

	zap.S().Debugw("processed HTML content",
		"url", urlStr,
		"title", article.Title,
		"length", len(markdown))

	return markdown, nil
}

func convertHTMLToMarkdown(htmlContent string) (string, error) {
	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(htmlContent)
	if err != nil {
		return "", errors.Wrap(err, "failed to convert HTML to Markdown")
	}
	return markdown, nil
}

// Trim cuts content to the character window [startIndex, startIndex+maxLength).
// A maxLength of 0 or less means no upper bound.
func Trim(content string, startIndex int, maxLength int) string {
	runes := []rune(content)
	contentLength := len(runes)
	if startIndex < 0 {
		startIndex = 0
	}
	if startIndex >= contentLength {
		return ""
	}
	endIndex := contentLength
	if maxLength > 0 && maxLength < contentLength-startIndex {
		endIndex = startIndex + maxLength
	}
	return string(runes[startIndex:endIndex])
}
