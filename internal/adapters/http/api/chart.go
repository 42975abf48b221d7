package api

import (
	"bytes"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/okian/segscore/internal/domain/types"
	"github.com/okian/segscore/pkg/logger"
)

// ChartHandler renders the leaderboard as a bar chart.
type ChartHandler struct {
	deps LeaderboardDependencies
	log  logger.Logger
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps LeaderboardDependencies, log logger.Logger) *ChartHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &ChartHandler{deps: deps, log: log}
}

// HandleChart handles GET /leaderboard/chart requests.
func (h *ChartHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	board, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		h.log.Error(r.Context(), "reading leaderboard", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", internalMessage)
		return
	}

	var buf bytes.Buffer
	if err := leaderboardChart(board).Render(&buf); err != nil {
		h.log.Error(r.Context(), "rendering leaderboard chart", logger.Error(err))
		writeError(w, http.StatusInternalServerError, "internal_error", internalMessage)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

func leaderboardChart(board types.Podium) *charts.Bar {
	entries := board.All()
	names := make([]string, len(entries))
	top := make([]opts.BarData, len(entries))
	rest := make([]opts.BarData, len(entries))
	for i, e := range entries {
		names[i] = e.Name
		if i < len(board.Top) {
			top[i] = opts.BarData{Value: e.Score}
			rest[i] = opts.BarData{Value: nil}
		} else {
			top[i] = opts.BarData{Value: nil}
			rest[i] = opts.BarData{Value: e.Score}
		}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Dice leaderboard", Width: "960px", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{Title: "Best Dice score per contestant"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Min: 0, Max: 1}),
	)
	label := charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"})
	bar.SetXAxis(names).
		AddSeries("Podium", top, label, charts.WithBarChartOpts(opts.BarChart{Stack: "score"})).
		AddSeries("Others", rest, label, charts.WithBarChartOpts(opts.BarChart{Stack: "score"}))
	return bar
}
