// Package views renders the status pages as templ components.
package views

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/qbimport/internal/core"
)

const style = `body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:960px;color:#1f2933}
table{border-collapse:collapse;width:100%}td,th{border-bottom:1px solid #e4e7eb;padding:.4rem;text-align:left}
.bar{background:#e4e7eb;height:.75rem;border-radius:.4rem}.bar>div{background:#2680c2;height:100%;border-radius:.4rem}
.failed{color:#ab091e}.alert{border:1px solid #ab091e;padding:1rem;border-radius:.4rem}code{font-size:.85rem}`

// Layout wraps body in the page shell.
func Layout(title string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if _, err := fmt.Fprintf(w, `<!DOCTYPE html><html lang="en"><head><meta charset="utf-8"><title>%s</title><style>%s</style></head><body><h1><a href="/">Question import</a></h1>`,
			templ.EscapeString(title), style); err != nil {
			return err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		_, err := io.WriteString(w, `</body></html>`)
		return err
	})
}

// IndexProps feeds the upload page.
type IndexProps struct {
	Runs        []core.RunSummary
	Headers     []string
	MaxFileSize int64
	Extensions  []string
}

// Index renders the upload form and recent runs.
func Index(p IndexProps) templ.Component {
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<section><h2>New import</h2>`)
		fmt.Fprintf(&b, `<form method="post" action="/api/imports" enctype="multipart/form-data">`+
			`<input type="file" name="file" accept="%s" required> <button type="submit">Upload</button></form>`,
			templ.EscapeString(strings.Join(p.Extensions, ",")))
		fmt.Fprintf(&b, `<p>Max size %s. Columns: <code>%s</code> (<a href="/api/template">template</a>)</p></section>`,
			formatBytes(p.MaxFileSize), templ.EscapeString(strings.Join(p.Headers, ", ")))

		b.WriteString(`<section><h2>Recent runs</h2>`)
		if len(p.Runs) == 0 {
			b.WriteString(`<p>No imports yet.</p>`)
		} else {
			b.WriteString(`<table><thead><tr><th>File</th><th>Started</th><th>Phase</th><th>Rows</th><th>Success</th><th>Failed</th></tr></thead><tbody>`)
			for _, run := range p.Runs {
				fmt.Fprintf(&b, `<tr><td><a href="%s">%s</a></td><td>%s</td><td>%s</td><td>%d</td><td>%d</td><td%s>%d</td></tr>`,
					templ.EscapeString(runURL(run.RunID)),
					templ.EscapeString(run.FileName),
					run.StartedAt.Format("2006-01-02 15:04:05"),
					templ.EscapeString(string(run.Phase)),
					run.Total, run.Success, failedClass(run.Failed), run.Failed)
			}
			b.WriteString(`</tbody></table>`)
		}
		b.WriteString(`</section>`)

		_, err := io.WriteString(w, b.String())
		return err
	})
	return Layout("Question import", body)
}

// Run renders one run's progress. Unfinished runs follow the SSE stream and
// reload once it completes.
func Run(status *core.RunStatus) templ.Component {
	p := status.Progress
	body := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		fmt.Fprintf(&b, `<h2>%s</h2><p>Run <code>%s</code>: <strong id="phase">%s</strong></p>`,
			templ.EscapeString(p.FileName), templ.EscapeString(p.RunID), templ.EscapeString(string(p.Phase)))
		fmt.Fprintf(&b, `<div class="bar"><div id="bar" style="width:%d%%"></div></div>`, p.Percent())
		fmt.Fprintf(&b, `<p><span id="processed">%d</span> of %d rows, <span id="success">%d</span> imported, <span id="failed" class="failed">%d</span> failed</p>`,
			p.Processed(), p.Total, p.Success, p.Failed)

		if p.Error != "" {
			msg := core.MapError(errors.New(p.Error))
			if err := alert(msg).Render(ctx, &b); err != nil {
				return err
			}
		}

		if r := status.Result; r != nil && len(r.Created) > 0 {
			b.WriteString(`<h3>Created</h3><table><tbody>`)
			for _, kind := range core.Kinds {
				fmt.Fprintf(&b, `<tr><td>%s</td><td>%d</td></tr>`, kind, r.Created[kind])
			}
			b.WriteString(`</tbody></table>`)
		}

		if len(p.Errors) > 0 {
			fmt.Fprintf(&b, `<h3>Errors</h3><p><a href="%s/errors.csv">Download failed rows</a></p><ul>`,
				templ.EscapeString(apiRunURL(p.RunID)))
			for _, e := range p.Errors {
				fmt.Fprintf(&b, `<li>%s</li>`, templ.EscapeString(e))
			}
			b.WriteString(`</ul>`)
		}

		if !p.Phase.Finished() {
			fmt.Fprintf(&b, `<script>(function(){var es=new EventSource(%q);`+
				`es.addEventListener("progress",function(e){var p=JSON.parse(e.data);`+
				`document.getElementById("phase").textContent=p.phase;`+
				`document.getElementById("processed").textContent=p.success+p.failed;`+
				`document.getElementById("success").textContent=p.success;`+
				`document.getElementById("failed").textContent=p.failed;`+
				`if(p.total>0){document.getElementById("bar").style.width=Math.floor((p.success+p.failed)*100/p.total)+"%%";}});`+
				`es.addEventListener("complete",function(){es.close();location.reload();});})();</script>`,
				apiRunURL(p.RunID)+"/events")
		}

		_, err := io.WriteString(w, b.String())
		return err
	})
	return Layout(p.FileName, body)
}

// ErrorPage renders a mapped error as a full page.
func ErrorPage(msg core.UserMessage) templ.Component {
	return Layout("Error", alert(msg))
}

func alert(msg core.UserMessage) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<div class="alert" role="alert"><strong>%s</strong><p>%s</p><small>%s</small></div>`,
			templ.EscapeString(msg.Message), templ.EscapeString(msg.Action), templ.EscapeString(msg.Code))
		return err
	})
}

func runURL(id string) string    { return "/imports/" + id }
func apiRunURL(id string) string { return "/api/imports/" + id }

func failedClass(n int) string {
	if n > 0 {
		return ` class="failed"`
	}
	return ""
}

func formatBytes(n int64) string {
	switch {
	case n <= 0:
		return "unlimited"
	case n >= 1<<20:
		return fmt.Sprintf("%d MB", n>>20)
	case n >= 1<<10:
		return fmt.Sprintf("%d KB", n>>10)
	default:
		return fmt.Sprintf("%d B", n)
	}
}
