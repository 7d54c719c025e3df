package chartjs

import (
	"math"
)

// NoOfHours covers today and tomorrow.
const NoOfHours = 48

const (
	ColorYellow = "#ffc107d4"
	ColorRed    = "#f44336d4"
)

// NewChart builds a stepped line chart, one hourly price per label and one
// empty dataset per color, all on the left axis.
func NewChart(title string, labels []string, colors ...string) Chart {
	datasets := make([]ChartDataset, 0, len(colors))
	for _, c := range colors {
		datasets = append(datasets, ChartDataset{
			Data:        make([]*float64, len(labels)),
			BorderWidth: 1,
			BorderColor: c,
			Stepped:     "before",
			PointRadius: 0,
			YAxisID:     "YAxis1",
		})
	}

	chart := Chart{
		Type: "line",
		Data: ChartData{
			Labels:   labels,
			Datasets: datasets,
		},
		Options: ChartOptions{
			Responsive:  true,
			Interaction: ChartInteraction{Mode: "index", Intersect: false},
			Plugins: ChartPlugins{
				Legend: ChartLegend{Display: len(colors) > 1},
			},
			Scales: map[string]ChartScale{
				"YAxis1": {
					Type:     "linear",
					Display:  true,
					Position: "left",
					Title:    ChartScaleTitle{Display: true}},
			},
		},
	}

	if title != "" {
		chart.Options.Plugins.Title = ChartTitle{Display: true, Text: title}
	}

	return chart
}

func (cs ChartScale) WithTitle(title string) ChartScale {
	cs.Title.Text = title
	return cs
}

// WithRange sets the axis bounds to the data range, widened to whole
// numbers and never above zero at the bottom.
func (cs ChartScale) WithRange(values ...*float64) ChartScale {
	lo, hi := 0.0, 0.0
	for _, v := range values {
		if v == nil {
			continue
		}
		lo = math.Min(lo, *v)
		hi = math.Max(hi, *v)
	}
	lo, hi = math.Floor(lo), math.Ceil(hi)
	cs.Min = &lo
	cs.Max = &hi
	return cs
}

// FixedFloat64 rounds half away from zero, negative prices included.
func FixedFloat64(num float64, precision int) *float64 {
	p := math.Pow(10, float64(precision))
	rounded := math.Round(num * p)
	result := rounded / p
	return &result
}
