// Package chart renders the six dashboard charts as Plotly figure
// descriptions. The browser draws them with Plotly.newPlot(el, data, layout).
package chart

// Figure is a Plotly figure: a list of traces and a layout.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

type Trace struct {
	Type        string    `json:"type"`
	Name        string    `json:"name,omitempty"`
	Orientation string    `json:"orientation,omitempty"`
	X           []any     `json:"x,omitempty"`
	Y           []any     `json:"y,omitempty"`
	Labels      []any     `json:"labels,omitempty"`
	Values      []float64 `json:"values,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	StackGroup  string    `json:"stackgroup,omitempty"`
}

type Layout struct {
	Title   Text   `json:"title"`
	BarMode string `json:"barmode,omitempty"`
	XAxis   *Axis  `json:"xaxis,omitempty"`
	YAxis   *Axis  `json:"yaxis,omitempty"`
}

type Axis struct {
	Title Text   `json:"title"`
	Type  string `json:"type,omitempty"`
}

type Text struct {
	Text string `json:"text"`
}

func axis(title string) *Axis { return &Axis{Title: Text{Text: title}} }

// label maps an empty attribute to a JSON null, which Plotly skips.
func label(s string) any {
	if s == "" {
		return nil
	}
	return s
}
