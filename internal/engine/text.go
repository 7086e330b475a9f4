package engine

import (
	"strings"

	"golang.org/x/net/html"
)

// Tags whose content never belongs in a notification body.
var skipTags = map[string]bool{
	"script": true, "style": true, "noscript": true, "iframe": true,
}

// Block elements become word breaks.
var breakTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// PlainText reduces a backend message to notification-safe text: markup is
// dropped, entities are decoded and whitespace is collapsed.
func PlainText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}

	z := html.NewTokenizer(strings.NewReader(s))
	var sb strings.Builder
	skip := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.TextToken:
			if skip == 0 {
				sb.Write(z.Text())
			}
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			switch {
			case skipTags[tag] && tt == html.StartTagToken:
				skip++
			case skipTags[tag] && tt == html.EndTagToken && skip > 0:
				skip--
			case breakTags[tag]:
				sb.WriteByte(' ')
			}
		}
	}
}
