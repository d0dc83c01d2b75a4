package render

import "html/template"

var referencesTmpl = template.Must(template.New("references").Parse(
	`<div class="sources">` +
		`<div class="sources-header">` +
		`<strong>References: <span class="source-count">({{len .References}})</span></strong>` +
		`{{if .Collapsible}}<button type="button" class="toggle-sources">` +
		`<span class="toggle-text">Show All</span><span class="toggle-icon">▼</span></button>{{end}}` +
		`</div>` +
		`<ul class="sources-list">` +
		`{{range .References}}<li class="source-item{{if .Hidden}} hidden-source{{end}}">` +
		`<a href="{{.URL}}" class="source-link"><span class="reference-number">{{.Index}}</span>{{.Label}}</a></li>{{end}}` +
		`</ul></div>`))

var graphStatsTmpl = template.Must(template.New("graph-stats").Parse(
	`<h4>Graph Statistics</h4>` +
		`<div class="stats-section"><h5>Nodes:</h5><ul>` +
		`{{range .Nodes}}<li>{{.Name}}: {{.Count}}</li>{{end}}` +
		`</ul></div>` +
		`<div class="stats-section"><h5>Relationships:</h5><ul>` +
		`{{range .Relationships}}<li>{{.Name}}: {{.Count}}</li>{{end}}` +
		`</ul></div>` +
		`<div class="stats-summary">` +
		`<p><strong>Total Nodes:</strong> {{.TotalNodes}}</p>` +
		`<p><strong>Total Relationships:</strong> {{.TotalRelationships}}</p>` +
		`</div>`))

var userTmpl = template.Must(template.New("user").Parse(`{{.}}`))

var assistantTmpl = template.Must(template.New("assistant").Parse(`<strong>{{.}}:</strong> `))
