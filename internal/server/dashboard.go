package server

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/alphalat/alphalat/internal/lateral"
	"github.com/alphalat/alphalat/internal/store"
)

//go:embed templates/*.html assets/style.css
var assets embed.FS

// pages holds the parsed layout and content templates.
type pages struct {
	css     template.CSS
	layout  *template.Template
	content map[string]*template.Template
}

func loadPages() (*pages, error) {
	css, err := assets.ReadFile("assets/style.css")
	if err != nil {
		return nil, fmt.Errorf("failed to load styles: %w", err)
	}
	layout, err := template.ParseFS(assets, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse layout: %w", err)
	}
	funcs := template.FuncMap{"percent": formatPercentage, "power": formatPower}
	content := make(map[string]*template.Template)
	for _, name := range []string{"list.html", "detail.html"} {
		t, err := template.New(name).Funcs(funcs).ParseFS(assets, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", name, err)
		}
		content[name] = t
	}
	return &pages{css: template.CSS(css), layout: layout, content: content}, nil
}

// Dashboard template data structures
type layoutData struct {
	Title   string
	CSS     template.CSS
	Content template.HTML
}

type listData struct {
	Datasets []datasetListItem
}

type datasetListItem struct {
	Subject     string
	Task        string
	Channels    int
	Trials      int
	CreatedAt   string
	RunID       string
	RunAt       string
	MeanIndex   float64
	HasSummary  bool
	ConditionsN int
}

type detailData struct {
	RunID      string
	Subject    string
	Task       string
	FinishedAt string
	FreqBand   string
	Slices     []store.SliceCount
	Rows       []lateral.Row
	Indices    []lateral.Index
	Summary    *lateral.Summary
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	ctx := r.Context()

	datasets, err := s.store.ListDatasets(ctx)
	if err != nil {
		http.Error(w, "Failed to load datasets", http.StatusInternalServerError)
		return
	}

	items := make([]datasetListItem, len(datasets))
	for i, d := range datasets {
		items[i] = datasetListItem{
			Subject:   d.Subject,
			Task:      string(d.Task),
			Channels:  len(d.Channels),
			Trials:    d.NTrials,
			CreatedAt: d.CreatedAt.Format("Jan 2, 2006"),
		}

		run, err := s.store.LatestRun(ctx, d.ID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			http.Error(w, "Failed to load runs", http.StatusInternalServerError)
			return
		}
		items[i].RunID = run.ID
		items[i].RunAt = run.FinishedAt.Format("Jan 2, 2006 15:04")
		if summary, err := lateral.Summarize(run.Table().LateralizationIndex()); err == nil {
			items[i].MeanIndex = summary.Mean
			items[i].ConditionsN = summary.N
			items[i].HasSummary = true
		}
	}

	s.renderDashboard(w, "Datasets", "list.html", listData{Datasets: items})
}

func (s *Server) handleDashboardRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.loadRun(w, r)
	if !ok {
		return
	}

	indices := run.Table().LateralizationIndex()
	data := detailData{
		RunID:      run.ID,
		Subject:    run.Subject,
		Task:       string(run.Task),
		FinishedAt: run.FinishedAt.Format("Jan 2, 2006 15:04"),
		FreqBand:   fmt.Sprintf("%g-%g Hz", run.Params.FMin, run.Params.FMax),
		Slices:     run.Slices,
		Rows:       run.Rows,
		Indices:    indices,
	}
	if summary, err := lateral.Summarize(indices); err == nil {
		data.Summary = &summary
	}

	s.renderDashboard(w, fmt.Sprintf("sub-%s %s", run.Subject, run.Task), "detail.html", data)
}

func (s *Server) renderDashboard(w http.ResponseWriter, title, contentTemplate string, data interface{}) {
	contentTmpl, ok := s.pages.content[contentTemplate]
	if !ok {
		http.Error(w, "Failed to load template", http.StatusInternalServerError)
		return
	}

	var contentBuf bytes.Buffer
	if err := contentTmpl.Execute(&contentBuf, data); err != nil {
		s.logger.Error("render dashboard", zap.String("template", contentTemplate), zap.Error(err))
		http.Error(w, "Failed to render template", http.StatusInternalServerError)
		return
	}

	layout := layoutData{
		Title:   title,
		CSS:     s.pages.css,
		Content: template.HTML(contentBuf.String()),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.pages.layout.Execute(w, layout); err != nil {
		s.logger.Error("render layout", zap.Error(err))
	}
}

func formatPercentage(p float64) string {
	return fmt.Sprintf("%+.1f%%", p*100)
}

func formatPower(p float64) string {
	return fmt.Sprintf("%.4g", p)
}
