package bench

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

var stages = []string{"Footprint_SteadyState", "Workload_OLTP", "Workload_OLAP", "Workload_Range"}

// PlotLatencies renders one grouped bar per backend name in results,
// one bar per workload stage, and writes a PNG to path.
func PlotLatencies(results []Result, path string) error {
	p := plot.New()
	p.Title.Text = "storedb backend comparison"
	p.Y.Label.Text = "ns/op"

	backends := uniqueNames(results)
	width := vg.Points(12)

	for i, name := range backends {
		values := make(plotter.Values, len(stages))
		for j, stage := range stages {
			values[j] = float64(latencyFor(results, name, stage))
		}
		bar, err := plotter.NewBarChart(values, width)
		if err != nil {
			return err
		}
		bar.Offset = vg.Points(float64(i)*14 - float64(len(backends))*7)
		bar.Color = plotutil.Color(i)
		p.Add(bar)
		p.Legend.Add(name, bar)
	}
	p.NominalX(stages...)

	return p.Save(10*vg.Inch, 5*vg.Inch, path)
}

func uniqueNames(results []Result) []string {
	var names []string
	seen := map[string]bool{}
	for _, r := range results {
		if !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	}
	return names
}

func latencyFor(results []Result, name, stage string) int64 {
	for _, r := range results {
		if r.Name == name && r.Operation == stage {
			return r.LatencyNs
		}
	}
	return 0
}
