package http

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	apperrors "adshub/internal/errors"
	"adshub/internal/estimator"
	"adshub/internal/services"
	"adshub/pkg/contracts/domain"
)

// DashboardHandler renders the estimator page at /
type DashboardHandler struct {
	service      EstimatorService
	errorHandler *apperrors.ErrorHandler
	logger       *slog.Logger
	tmpl         *template.Template
}

type dashboardView struct {
	Filter  domain.EstimatorFilter
	Options estimator.FilterOptions
	Summary estimator.Summary
	Page    *services.CampaignPage
}

func NewDashboardHandler(service EstimatorService, errorHandler *apperrors.ErrorHandler, logger *slog.Logger) *DashboardHandler {
	p := message.NewPrinter(language.English)
	funcs := template.FuncMap{
		"money": func(v float64) string { return p.Sprintf("€%.2f", v) },
		"count": func(v int64) string { return p.Sprintf("%d", v) },
		"pct":   func(v float64) string { return p.Sprintf("%.1f%%", v) },
		"cell": func(kind string, v float64) string {
			switch kind {
			case estimator.KindCurrency:
				return p.Sprintf("€%.2f", v)
			case estimator.KindPercent:
				return p.Sprintf("%.2f%%", v)
			case estimator.KindCount:
				return p.Sprintf("%.0f", v)
			}
			return p.Sprintf("%.2f", v)
		},
		"kind": func(kinds []string, i int) string {
			if i < len(kinds) {
				return kinds[i]
			}
			return estimator.KindDecimal
		},
		"selected": func(values []string, v string) bool {
			for _, s := range values {
				if s == v {
					return true
				}
			}
			return false
		},
	}
	return &DashboardHandler{
		service:      service,
		errorHandler: errorHandler,
		logger:       logger.With(slog.String("handler", "dashboard")),
		tmpl:         template.Must(template.New("dashboard").Funcs(funcs).Parse(dashboardTemplate)),
	}
}

// ServeHTTP handles GET /. The filter form submits as query parameters.
func (h *DashboardHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	f, err := FilterFromQuery(r.URL.Query())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	view := dashboardView{Filter: f}
	if view.Options, err = h.service.Options(ctx); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if view.Summary, err = h.service.Summary(ctx, f); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	if view.Page, err = h.service.Campaigns(ctx, f); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := h.tmpl.Execute(&buf, view); err != nil {
		h.logger.ErrorContext(ctx, "dashboard_render_failed", slog.String("error", err.Error()))
		h.errorHandler.HandleError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

const dashboardTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Estimator Terminator</title>
<style>
body { font-family: sans-serif; margin: 24px; color: #222; }
form { display: flex; flex-wrap: wrap; gap: 12px; margin-bottom: 16px; }
fieldset { border: 1px solid #ddd; }
.totals { display: flex; gap: 24px; margin: 16px 0; }
.totals div { background: #f4f6f8; padding: 8px 12px; border-radius: 4px; }
table { border-collapse: collapse; width: 100%; }
th, td { border-bottom: 1px solid #eee; padding: 4px 8px; text-align: right; }
th:first-child, td:first-child { text-align: left; }
</style>
</head>
<body>
<h1>Estimator Terminator</h1>
<form method="get" action="/">
  <label>Search <input name="search" value="{{.Filter.Search}}"></label>
  <label>Brand
    <select name="brands" multiple>
    {{- range .Options.Brands}}
      <option{{if selected $.Filter.Brands .}} selected{{end}}>{{.}}</option>
    {{- end}}
    </select>
  </label>
  <fieldset><legend>Format</legend>
  {{- range .Options.Formats}}
    <label><input type="checkbox" name="formats" value="{{.}}"{{if selected $.Filter.Formats .}} checked{{end}}>{{.}}</label>
  {{- end}}
  </fieldset>
  <fieldset><legend>Age</legend>
  {{- range .Options.Ages}}
    <label><input type="checkbox" name="ages" value="{{.}}"{{if selected $.Filter.Ages .}} checked{{end}}>{{.}}</label>
  {{- end}}
  </fieldset>
  <fieldset><legend>Gender</legend>
  {{- range .Options.Genders}}
    <label><input type="checkbox" name="genders" value="{{.}}"{{if selected $.Filter.Genders .}} checked{{end}}>{{.}}</label>
  {{- end}}
  </fieldset>
  <fieldset><legend>Bid strategy</legend>
  {{- range .Options.Bids}}
    <label><input type="checkbox" name="bids" value="{{.}}"{{if selected $.Filter.Bids .}} checked{{end}}>{{.}}</label>
  {{- end}}
  </fieldset>
  <fieldset><legend>Quarter</legend>
  {{- range .Options.Quarters}}
    <label><input type="checkbox" name="quarters" value="{{.}}"{{if selected $.Filter.Quarters .}} checked{{end}}>{{.}}</label>
  {{- end}}
  </fieldset>
  <fieldset><legend>Budget</legend>
    <label>Target <input name="target_budget" type="number" step="any" value="{{if .Filter.TargetBudget}}{{.Filter.TargetBudget}}{{end}}"></label>
    <label>Min <input name="min_budget" type="number" step="any" value="{{if .Filter.MinBudget}}{{.Filter.MinBudget}}{{end}}"></label>
    <label>Max <input name="max_budget" type="number" step="any" value="{{if .Filter.MaxBudget}}{{.Filter.MaxBudget}}{{end}}"></label>
  </fieldset>
  <fieldset><legend>Metrics</legend>
  {{- range .Options.Metrics}}
    <label><input type="checkbox" name="metrics" value="{{.}}"{{if selected $.Filter.Metrics .}} checked{{end}}>{{.}}</label>
  {{- end}}
  </fieldset>
  <label><input type="checkbox" name="show_original_names" value="true"{{if .Filter.ShowOriginalNames}} checked{{end}}>Original names</label>
  <button type="submit">Apply</button>
</form>

<div class="totals">
  <div>Campaigns <strong>{{.Summary.Count}}</strong> of {{.Summary.Total}} ({{pct .Summary.CoveragePct}})</div>
  <div>Cost <strong>{{money .Summary.Cost}}</strong></div>
  <div>Impressions <strong>{{count .Summary.Impressions}}</strong></div>
  <div>Weighted CPM <strong>{{money .Summary.WeightedCPM}}</strong></div>
  <div>Peak reach <strong>{{count .Summary.PeakReach}}</strong></div>
  <div>Avg. frequency <strong>{{printf "%.2f" .Summary.AvgFrequency}}</strong></div>
  <div>Targeting <strong>{{.Summary.Targeting.Label}}</strong></div>
</div>

{{with .Page.Table}}
<table>
  <thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
  <tbody>
  {{- $kinds := .Kinds}}
  {{- range .Rows}}
    <tr><td>{{.Campaign}}</td>{{range $i, $v := .Values}}<td>{{cell (kind $kinds $i) $v}}</td>{{end}}</tr>
  {{- end}}
  </tbody>
</table>
{{end}}
</body>
</html>
`
