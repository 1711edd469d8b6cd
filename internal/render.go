package internal

import (
	"bytes"
	"fmt"
	"html/template"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"golang.org/x/term"
)

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content for the terminal with glamour
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(getTerminalWidth()),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	rendered, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return rendered, nil
}

var markdownHTML = goldmark.New(
	goldmark.WithExtensions(extension.GFM, extension.Footnote),
	goldmark.WithParserOptions(parser.WithAutoHeadingID(), parser.WithAttribute()),
	goldmark.WithRendererOptions(html.WithHardWraps(), html.WithXHTML()),
)

var notesPage = template.Must(template.New("notes").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="https://cdnjs.cloudflare.com/ajax/libs/mermaid/9.3.0/mermaid.min.js"></script>
<script src="https://cdnjs.cloudflare.com/ajax/libs/mathjax/3.2.0/es5/tex-mml-chtml.js"></script>
<link rel="stylesheet" href="https://cdnjs.cloudflare.com/ajax/libs/highlight.js/11.7.0/styles/{{.CodeStyle}}.min.css">
<script src="https://cdnjs.cloudflare.com/ajax/libs/highlight.js/11.7.0/highlight.min.js"></script>
<style>
body { max-width: 900px; margin: 0 auto; padding: 20px; font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; line-height: 1.6; }
pre { background-color: #272822; padding: 1em; border-radius: 4px; margin: 1em 0; overflow-x: auto; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
th { background-color: #f5f5f5; }
.mermaid { text-align: center; margin: 1em 0; }
</style>
</head>
<body>
{{.Body}}
<script>
document.querySelectorAll("pre > code.language-mermaid").forEach(function (code) {
  var div = document.createElement("div");
  div.className = "mermaid";
  div.textContent = code.textContent;
  code.parentNode.replaceWith(div);
});
mermaid.initialize({ startOnLoad: true });
hljs.highlightAll();
</script>
</body>
</html>
`))

// RenderHTML converts markdown notes into a standalone HTML page
func RenderHTML(title, markdown string) (string, error) {
	var body bytes.Buffer
	if err := markdownHTML.Convert([]byte(markdown), &body); err != nil {
		return "", fmt.Errorf("converting markdown: %w", err)
	}

	if title == "" {
		title = "Notes"
	}

	var page bytes.Buffer
	err := notesPage.Execute(&page, struct {
		Title     string
		CodeStyle string
		Body      template.HTML
	}{
		Title:     title,
		CodeStyle: "monokai-sublime",
		Body:      template.HTML(body.String()),
	})
	if err != nil {
		return "", fmt.Errorf("rendering page: %w", err)
	}

	return page.String(), nil
}
