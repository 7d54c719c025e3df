package chartjs

// Chart is the chart.js configuration object, encoded as is for the browser.
type Chart struct {
	Type    string       `json:"type"`
	Data    ChartData    `json:"data"`
	Options ChartOptions `json:"options"`
}

type ChartData struct {
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartDataset holds one value per label, nil where the hour has no price.
type ChartDataset struct {
	Label       string     `json:"label,omitempty"`
	Data        []*float64 `json:"data"`
	BorderWidth int        `json:"borderWidth"`
	BorderColor string     `json:"borderColor"`
	Stepped     string     `json:"stepped,omitempty"`
	PointRadius int        `json:"pointRadius"`
	Fill        bool       `json:"fill"`
	SpanGaps    bool       `json:"spanGaps"`
	YAxisID     string     `json:"yAxisID,omitempty"`
}

type ChartOptions struct {
	Responsive  bool                  `json:"responsive"`
	Interaction ChartInteraction      `json:"interaction"`
	Plugins     ChartPlugins          `json:"plugins"`
	Scales      map[string]ChartScale `json:"scales"`
}

type ChartInteraction struct {
	Mode      string `json:"mode"`
	Intersect bool   `json:"intersect"`
}

type ChartPlugins struct {
	Legend ChartLegend `json:"legend"`
	Title  ChartTitle  `json:"title"`
}

type ChartLegend struct {
	Display bool `json:"display"`
}

type ChartTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}

type ChartScale struct {
	Type     string          `json:"type"`
	Display  bool            `json:"display"`
	Position string          `json:"position"`
	Min      *float64        `json:"min,omitempty"`
	Max      *float64        `json:"max,omitempty"`
	Title    ChartScaleTitle `json:"title"`
}

type ChartScaleTitle struct {
	Display bool   `json:"display"`
	Text    string `json:"text"`
}
