package xlsx

// ChartType selects the plotted chart kind. The closed set mirrors the
// chart parts this package can emit; chart geometry beyond series data
// ranges is not configurable.
type ChartType string

const (
	ChartBar    ChartType = "bar"    // horizontal bars
	ChartColumn ChartType = "column" // vertical bars
	ChartLine   ChartType = "line"
)

// ChartSeries is one plotted series. Categories and Values are sheet
// range formulas like "Sheet1!$A$1:$A$5"; Categories may be empty.
type ChartSeries struct {
	Name       string
	Categories string
	Values     string
}

// Chart is an embeddable chart referenced from a worksheet through the
// drawing part.
type Chart struct {
	Type   ChartType
	Title  string
	Series []ChartSeries
}

// NewChart creates an empty chart of the given type.
func NewChart(typ ChartType) *Chart {
	return &Chart{Type: typ}
}

// AddSeries appends a series and returns the chart for chaining.
func (c *Chart) AddSeries(s ChartSeries) *Chart {
	c.Series = append(c.Series, s)
	return c
}
