// Package markup turns model-written Markdown into HTML that is safe to
// embed in a page.
package markup

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

var (
	mdOnce sync.Once
	md     goldmark.Markdown

	policyOnce sync.Once
	policy     *bluemonday.Policy
)

func converter() goldmark.Markdown {
	mdOnce.Do(func() {
		md = goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		)
	})
	return md
}

func sanitizer() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowAttrs("class").OnElements("p", "span", "table")
		p.RequireNoFollowOnLinks(true)
		policy = p
	})
	return policy
}

// Render converts Markdown to sanitized HTML. Raw HTML in the source is
// dropped by goldmark and anything left is filtered by a UGC policy.
func Render(src string) (template.HTML, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := converter().Convert([]byte(src), &buf); err != nil {
		return "", fmt.Errorf("markup: render: %w", err)
	}
	return template.HTML(sanitizer().SanitizeBytes(buf.Bytes())), nil
}

// Sanitize filters an HTML fragment through the same policy as Render.
func Sanitize(fragment string) template.HTML {
	return template.HTML(sanitizer().Sanitize(fragment))
}
