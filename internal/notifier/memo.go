package notifier

import (
	"strings"
	"text/template"
	"time"

	"github.com/starford/raido/internal/models"
)

// memoTemplate is the plain-text compliance memo sent to process owners.
var memoTemplate = template.Must(template.New("memo").Funcs(template.FuncMap{
	"date":  formatDate,
	"deref": func(t *time.Time) time.Time { return *t },
	"inc":   func(i int) int { return i + 1 },
}).Parse(`REQUEST FOR STATUS OF COMPLIANCE WITH {{.Body}} DECISIONS

To:   {{.Directive.Owner}}
From: Secretary to the Board/Director
Ref:  {{if .Directive.Ref}}{{.Directive.Ref}}{{else}}N/A{{end}}
Date: {{date .Today}}

SUBJECT: {{.Directive.Subject}}

{{.Directive.Particulars}}
{{if .HasTimeline}}
Implementation timeline: {{if .Directive.ImplementationStartDate}}{{date (deref .Directive.ImplementationStartDate)}}{{else}}Not set{{end}} to {{if .Directive.ImplementationEndDate}}{{date (deref .Directive.ImplementationEndDate)}}{{else}}Not set{{end}}
{{end}}
REQUIRED OUTCOMES AND CURRENT STATUS
{{range $i, $o := .Directive.Outcomes}}
{{inc $i}}. {{$o.Text}}
   Status: {{$o.Status}}{{if $o.Challenges}}
   Challenges: {{$o.Challenges}}{{end}}{{if $o.CompletionDetails}}
   Completed: {{$o.CompletionDetails}}{{end}}{{if $o.DelayReason}}
   Delay reason: {{$o.DelayReason}}{{end}}
{{end}}
ACTION REQUIRED: Please provide an update on the implementation status of
the above outcomes. Your response is needed to compile the status of
compliance with {{.Body}} decisions.

This is an automated reminder from the directives compliance monitor.
`))

type memoData struct {
	Directive   *models.Directive
	Body        string
	Today       time.Time
	HasTimeline bool
}

// RenderMemo produces the plain-text memo body for a directive.
func RenderMemo(d *models.Directive, today time.Time) (string, error) {
	data := memoData{
		Directive:   d,
		Body:        governingBody(d.Source),
		Today:       today,
		HasTimeline: d.ImplementationStartDate != nil || d.ImplementationEndDate != nil,
	}
	var b strings.Builder
	if err := memoTemplate.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

func governingBody(s models.Source) string {
	if s == models.SourceBoard {
		return "BOARD OF DIRECTORS"
	}
	return "COUNCIL OF GOVERNORS"
}

func formatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}
