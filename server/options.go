package server

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/cnosuke/mcp-finedata/internal/content"
	"github.com/cnosuke/mcp-finedata/types"
)

// scrapeOptionsFromArgs builds a full options record from the tool arguments.
// Keys that are absent keep their documented default.
func scrapeOptionsFromArgs(args Arguments, defaultTimeout int) types.ScrapeOptions {
	opts := types.DefaultScrapeOptions()

	opts.Method = strings.ToUpper(args.StringOr("method", opts.Method))
	if headers := args.StringMap("headers"); headers != nil {
		opts.Headers = headers
	}
	opts.Body = args.OptionalString("body")
	opts.TLSProfile = args.StringOr("tls_profile", opts.TLSProfile)
	opts.MaxRetries = args.Int("max_retries", opts.MaxRetries)
	opts.Timeout = args.Int("timeout", defaultTimeout)

	opts.UseAntibot = args.Bool("use_antibot", opts.UseAntibot)
	opts.UseJSRender = args.Bool("use_js_render", opts.UseJSRender)
	opts.UseResidential = args.Bool("use_residential", opts.UseResidential)
	opts.UseMobile = args.Bool("use_mobile", opts.UseMobile)
	opts.UseUndetected = args.Bool("use_undetected", opts.UseUndetected)
	opts.UseNodriver = args.Bool("use_nodriver", opts.UseNodriver)

	opts.JSWaitFor = args.StringOr("js_wait_for", opts.JSWaitFor)
	opts.JSScroll = args.Bool("js_scroll", opts.JSScroll)
	opts.SolveCaptcha = args.Bool("solve_captcha", opts.SolveCaptcha)

	opts.SessionID = args.OptionalString("session_id")
	opts.SessionTTL = args.Int("session_ttl", opts.SessionTTL)

	return opts
}

// contentView holds the presentation arguments shared by tools that return page content.
type contentView struct {
	format     content.Format
	maxLength  int
	startIndex int
}

func contentViewFromArgs(args Arguments) (contentView, error) {
	format, err := content.ParseFormat(args.String("format"))
	if err != nil {
		return contentView{}, err
	}
	return contentView{
		format:     format,
		maxLength:  args.Int("max_length", 0),
		startIndex: args.Int("start_index", 0),
	}, nil
}

// render converts and windows body. A note is appended when content was cut.
func (v contentView) render(body, pageURL string) string {
	converted := content.Convert(body, pageURL, v.format)
	trimmed := content.Trim(converted, v.startIndex, v.maxLength)
	total := utf8.RuneCountInString(converted)
	shown := utf8.RuneCountInString(trimmed)
	if shown == total {
		return trimmed
	}

	start := v.startIndex
	if start < 0 {
		start = 0
	}
	end := start + shown
	if end < total {
		return trimmed + "\n\n" + truncationNote(start, end, total)
	}
	return trimmed
}

func truncationNote(start, end, total int) string {
	return fmt.Sprintf("[Content truncated: showing characters %d-%d of %d. Use start_index=%d to read more.]",
		start, end, total, end)
}
