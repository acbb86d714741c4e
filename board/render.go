package board

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"strings"
	"text/tabwriter"
)

//go:embed templates/board.html.tmpl
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/board.html.tmpl"))

// DefaultTitle is the page heading used when RenderHTML is given none.
const DefaultTitle = "Mergington High School"

type pageData struct {
	Title   string
	Tooltip string
	Doc     Document
}

// RenderHTML writes doc as a complete HTML page. All activity fields and
// participant emails are escaped, so they appear as literal text.
func RenderHTML(w io.Writer, doc Document, title string) error {
	if title == "" {
		title = DefaultTitle
	}
	data := pageData{
		Title:   title,
		Tooltip: UnregisterControlTooltip,
		Doc:     doc,
	}
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering board: %w", err)
	}
	return nil
}

// RenderText writes doc as plain text for terminals.
func RenderText(w io.Writer, doc Document) error {
	var b strings.Builder

	if doc.Message.Text != "" && !doc.Message.Hidden {
		fmt.Fprintf(&b, "[%s] %s\n\n", doc.Message.Severity, doc.Message.Text)
	}

	if doc.List.Notice != "" {
		fmt.Fprintln(&b, doc.List.Notice)
		_, err := io.WriteString(w, b.String())
		return err
	}

	tw := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ACTIVITY\tSCHEDULE\tSPOTS LEFT")
	for _, c := range doc.List.Cards {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", c.Name, c.Schedule, c.SpotsLeft)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, c := range doc.List.Cards {
		fmt.Fprintf(&b, "\n%s: %s\n", c.Name, c.Description)
		for _, r := range c.Rows {
			if r.Placeholder {
				fmt.Fprintf(&b, "  (%s)\n", r.Text)
				continue
			}
			fmt.Fprintf(&b, "  - %s\n", r.Text)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
