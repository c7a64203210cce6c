package templates

import (
	"context"
	"encoding/json"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/a-h/templ"

	"github.com/mpfordreamer/ecommercedataanalysis-dicoding/internal/dataset"
)

// Panel is one chart slot on a tab, fed by the pipeline of the same name.
type Panel struct {
	Name  string
	Title string
}

type Tab struct {
	ID     string
	Label  string
	Panels []Panel
}

type Option struct {
	Value string
	Label string
}

// Notice is a diagnostic shown above the tabs. Fatal notices mark views that
// cannot be produced at all.
type Notice struct {
	Message string
	Fatal   bool
}

type Page struct {
	Title         string
	Tabs          []Tab
	Facets        dataset.Facets
	ReviewOptions []Option
	Notices       []Notice
}

// signals is the initial datastar signal state of the page. The date bounds
// start empty so the first refresh selects every record.
func (p Page) signals() string {
	initial := map[string]any{
		"start":      "",
		"end":        "",
		"categories": []string{},
		"states":     []string{},
		"minPrice":   "",
		"maxPrice":   "",
		"review":     "all",
		"tab":        "",
		"tables":     map[string]any{},
	}
	if len(p.Tabs) > 0 {
		initial["tab"] = p.Tabs[0].ID
	}
	b, _ := json.Marshal(initial)
	return string(b)
}

var funcs = template.FuncMap{
	"deref": func(f *float64) float64 {
		if f == nil {
			return 0
		}
		return *f
	},
	"date": func(t *time.Time) string {
		if t == nil {
			return ""
		}
		return t.Format(time.DateOnly)
	},
	"render": func(c templ.Component) (template.HTML, error) {
		var b strings.Builder
		if err := c.Render(context.Background(), &b); err != nil {
			return "", err
		}
		return template.HTML(b.String()), nil
	},
}

var pageTemplate = template.Must(template.New("page").Funcs(funcs).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<script type="module" src="https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"></script>
<style>
body{font-family:system-ui,sans-serif;margin:0;display:flex;min-height:100vh}
aside{width:280px;padding:1rem;background:#f4f5f7;border-right:1px solid #ddd}
main{flex:1;padding:1rem 2rem}
label{display:block;margin-top:.75rem;font-weight:600}
select,input{width:100%}
nav button{margin-right:.25rem}
nav button.active{font-weight:700}
.metrics{display:flex;gap:1rem}
.metric{flex:1;padding:1rem;border:1px solid #ddd;border-radius:6px}
.notice{padding:.5rem;margin:.25rem 0;background:#fff8e1}
.notice.fatal{background:#fdecea}
pre{max-height:320px;overflow:auto;background:#fafafa;padding:.5rem}
</style>
</head>
<body data-signals="{{.Signals}}" data-init="@get('/sse/refresh-all')">
<aside>
<h2>Filters</h2>
<label for="start">From</label>
<input id="start" type="date"{{with .Facets.FirstPurchase}} min="{{date .}}" placeholder="{{date .}}"{{end}}{{with .Facets.LastPurchase}} max="{{date .}}"{{end}} data-bind="start">
<label for="end">To</label>
<input id="end" type="date"{{with .Facets.FirstPurchase}} min="{{date .}}"{{end}}{{with .Facets.LastPurchase}} max="{{date .}}" placeholder="{{date .}}"{{end}} data-bind="end">
<label for="categories">Product categories</label>
<select id="categories" multiple size="8" data-bind="categories">
{{range .Facets.Categories}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
<label for="states">Customer states</label>
<select id="states" multiple size="8" data-bind="states">
{{range .Facets.States}}<option value="{{.}}">{{.}}</option>
{{end}}</select>
<label for="min-price">Min price</label>
<input id="min-price" type="number" step="0.01"{{with .Facets.MinPrice}} placeholder="{{printf "%.2f" (deref .)}}"{{end}} data-bind="minPrice">
<label for="max-price">Max price</label>
<input id="max-price" type="number" step="0.01"{{with .Facets.MaxPrice}} placeholder="{{printf "%.2f" (deref .)}}"{{end}} data-bind="maxPrice">
<label for="review">Review score</label>
<select id="review" data-bind="review">
{{range .ReviewOptions}}<option value="{{.Value}}">{{.Label}}</option>
{{end}}</select>
<p><button data-on:click="@get('/sse/refresh-all')">Apply</button></p>
</aside>
<main>
<h1>{{.Title}}</h1>
{{render .NoticesComponent}}
<nav>
{{range .Tabs}}<button data-class:active="$tab == '{{.ID}}'" data-on:click="$tab = '{{.ID}}'; @get('/sse/tabs/{{.ID}}')">{{.Label}}</button>
{{end}}</nav>
{{range .Tabs}}<section id="tab-{{.ID}}" data-show="$tab == '{{.ID}}'">
{{if eq .ID "overview"}}<div id="overview-metrics"></div>{{end}}
{{range .Panels}}<article id="panel-{{.Name}}">
<h3>{{.Title}}</h3>
{{if eq .Name "segment_stats"}}<div id="segment-stats"></div>{{else}}<pre data-text="JSON.stringify($tables.{{.Name}} ?? null, null, 1)"></pre>{{end}}
</article>
{{end}}</section>
{{end}}</main>
</body>
</html>`))

type pageData struct {
	Page
	Signals          string
	NoticesComponent templ.Component
}

// Dashboard renders the full single page.
func Dashboard(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return pageTemplate.Execute(w, pageData{Page: p, Signals: p.signals(), NoticesComponent: Notices(p.Notices)})
	})
}
