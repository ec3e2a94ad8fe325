package database

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/felixgeelhaar/dbmcp/domain/query"
)

// Chart kinds suggested for an analysis.
const (
	ChartBar     = "bar"
	ChartLine    = "line"
	ChartPie     = "pie"
	ChartScatter = "scatter"
)

const (
	maxBars        = 20
	maxPieSlices   = 10
	otherSliceName = "Others"
	indexColumn    = "index"
)

// Chart is a rendering-neutral chart suggestion: the kind, the columns on
// each axis and the points to draw. Clients render it however they like.
type Chart struct {
	Type   string       `json:"type"`
	Title  string       `json:"title"`
	X      string       `json:"x"`
	Y      string       `json:"y"`
	Points []ChartPoint `json:"points"`
}

// ChartPoint is one bar, slice or plotted value.
type ChartPoint struct {
	X any     `json:"x"`
	Y float64 `json:"y"`
}

var visualizeKeywords = []string{
	"chart", "graph", "plot", "visualize", "visualization",
	"distribution", "trend", "compare", "show me",
}

var chartKeywords = []struct {
	kind  string
	words []string
}{
	{ChartPie, []string{"distribution", "proportion", "breakdown", "percentage", "pie"}},
	{ChartLine, []string{"trend", "over time", "timeline", "change", "growth"}},
	{ChartScatter, []string{"correlation", "relationship", "scatter", "versus", "vs"}},
	{ChartBar, []string{"compare", "comparison", "rank", "top", "bar"}},
}

// WantsChart reports whether a request asks for something visual.
func WantsChart(request string) bool {
	return containsAny(strings.ToLower(request), visualizeKeywords)
}

// ChartKind picks the chart kind a request hints at, defaulting to bar.
func ChartKind(request string) string {
	r := strings.ToLower(request)
	for _, k := range chartKeywords {
		if containsAny(r, k.words) {
			return k.kind
		}
	}
	return ChartBar
}

// SuggestChart builds a chart for res when the request asks for one. It
// returns nil for empty results and when no column holds numbers to plot.
func SuggestChart(request string, res query.Result) *Chart {
	if len(res.Rows) == 0 || !WantsChart(request) {
		return nil
	}

	kind := ChartKind(request)
	cols := resultColumns(res)
	x, y := chartAxes(kind, cols, res.Rows)

	points := make([]ChartPoint, 0, len(res.Rows))
	for i, row := range res.Rows {
		v, ok := toFloat(row[y])
		if !ok {
			continue
		}
		var label any = i
		if x != indexColumn {
			label = row[x]
		}
		points = append(points, ChartPoint{X: label, Y: v})
	}
	if len(points) == 0 {
		return nil
	}

	c := &Chart{Type: kind, X: x, Y: y}
	switch kind {
	case ChartBar:
		c.Title = fmt.Sprintf("Bar Chart: %s by %s", y, x)
		if len(points) > maxBars {
			sort.SliceStable(points, func(i, j int) bool { return points[i].Y > points[j].Y })
			points = points[:maxBars]
			c.Title = fmt.Sprintf("Top %d by %s", maxBars, y)
		}
	case ChartLine:
		c.Title = fmt.Sprintf("Line Chart: %s over %s", y, x)
	case ChartScatter:
		c.Title = fmt.Sprintf("Scatter Plot: %s vs %s", y, x)
	case ChartPie:
		c.Title = fmt.Sprintf("Distribution of %s by %s", y, x)
		points = pieSlices(points)
	}
	c.Points = points
	return c
}

// chartAxes chooses the x and y columns for kind: categories for bars and
// slices, dates for lines and two numeric columns for scatter plots.
func chartAxes(kind string, cols []string, rows []query.Row) (string, string) {
	var numeric, categorical, dated []string
	for _, c := range cols {
		if isNumericColumn(c, rows) {
			numeric = append(numeric, c)
		} else {
			categorical = append(categorical, c)
		}
		if isDateColumn(c, rows) {
			dated = append(dated, c)
		}
	}

	var x, y string
	switch kind {
	case ChartPie, ChartBar:
		switch {
		case len(categorical) > 0 && len(numeric) > 0:
			x, y = categorical[0], numeric[0]
		case len(numeric) >= 2:
			x, y = numeric[0], numeric[1]
		}
	case ChartLine:
		switch {
		case len(dated) > 0 && len(numeric) > 0:
			x, y = dated[0], numeric[0]
		case len(numeric) >= 2:
			x, y = numeric[0], numeric[1]
		case len(categorical) > 0 && len(numeric) > 0:
			x, y = categorical[0], numeric[0]
		}
	case ChartScatter:
		if len(numeric) >= 2 {
			x, y = numeric[0], numeric[1]
		}
	}
	if x != "" && y != "" {
		return x, y
	}

	if len(cols) >= 2 {
		x, y = cols[0], cols[1]
		if isNumericColumn(x, rows) && len(cols) > 2 {
			y = cols[2]
		}
		return x, y
	}
	return indexColumn, cols[0]
}

// pieSlices sums values per label. Past maxPieSlices labels, the largest
// ones are kept and the rest are folded into one "Others" slice.
func pieSlices(points []ChartPoint) []ChartPoint {
	var slices []ChartPoint
	index := make(map[string]int)
	for _, p := range points {
		key := fmt.Sprint(p.X)
		if i, ok := index[key]; ok {
			slices[i].Y += p.Y
			continue
		}
		index[key] = len(slices)
		slices = append(slices, p)
	}
	if len(slices) <= maxPieSlices {
		return slices
	}

	sort.SliceStable(slices, func(i, j int) bool { return slices[i].Y > slices[j].Y })
	other := ChartPoint{X: otherSliceName}
	for _, s := range slices[maxPieSlices-1:] {
		other.Y += s.Y
	}
	return append(slices[:maxPieSlices-1], other)
}

// resultColumns returns the declared columns, or the sorted keys of the
// first row when the backend reports none.
func resultColumns(res query.Result) []string {
	if len(res.Columns) > 0 {
		return res.Columns
	}
	cols := make([]string, 0, len(res.Rows[0]))
	for k := range res.Rows[0] {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func isNumericColumn(col string, rows []query.Row) bool {
	seen := false
	for _, r := range rows {
		v := r[col]
		if v == nil {
			continue
		}
		if _, isString := v.(string); isString {
			return false
		}
		if _, ok := toFloat(v); !ok {
			return false
		}
		seen = true
	}
	return seen
}

func isDateColumn(col string, rows []query.Row) bool {
	name := strings.ToLower(col)
	if strings.Contains(name, "date") || strings.Contains(name, "time") {
		return true
	}
	for _, r := range rows {
		if v := r[col]; v != nil {
			_, ok := v.(time.Time)
			return ok
		}
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
