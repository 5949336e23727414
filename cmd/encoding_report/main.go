// Command encoding_report fits a categorical encoding Provider on an
// in-memory table and renders a bar chart of per-category row counts.
package main

import (
	"fmt"
	"math/rand/v2"
	"os"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/scigo/pkg/log"
	"github.com/ezoic/scigo/sklearn/lightgbm/encoding"
)

const categoryFeatureID = 0

func syntheticTable(rows int, numCategories int, seed uint64) (*mat.Dense, *mat.VecDense) {
	src := rand.New(rand.NewPCG(seed, seed^0xC0FFEE))
	means := make([]float64, numCategories)
	for i := range means {
		means[i] = float64(i) * 3.5
	}

	data := mat.NewDense(rows, 1, nil)
	labelVals := make([]float64, rows)
	for i := 0; i < rows; i++ {
		cat := src.IntN(numCategories)
		data.Set(i, categoryFeatureID, float64(cat))
		labelVals[i] = means[cat] + src.NormFloat64()
	}
	return data, mat.NewVecDense(rows, labelVals)
}

func main() {
	log.SetupLogger("info")
	logger := log.GetLoggerWithName("encoding_report")

	const rows = 2000
	const numCategories = 6
	data, label := syntheticTable(rows, numCategories, 11)

	cfg, err := encoding.NewConfig(5, []int{categoryFeatureID},
		[]encoding.EncoderKind{encoding.CountEncoderKind, encoding.TargetLabelMeanEncoderKind})
	if err != nil {
		logger.Error("config build failed", "error", err)
		os.Exit(1)
	}

	provider, err := encoding.NewProvider(cfg)
	if err != nil {
		logger.Error("provider build failed", "error", err)
		os.Exit(1)
	}

	accessor := encoding.NewDenseRowAccessor(data)
	if err := provider.IngestDense(accessor, rows, label); err != nil {
		logger.Error("ingest failed", "error", err)
		os.Exit(1)
	}
	if err := provider.Finish(); err != nil {
		logger.Error("finish failed", "error", err)
		os.Exit(1)
	}

	counts, err := provider.CategoryCounts(categoryFeatureID)
	if err != nil {
		logger.Error("category counts failed", "error", err)
		os.Exit(1)
	}

	values := make(plotter.Values, len(counts))
	for i, c := range counts {
		values[i] = float64(c.Count)
	}

	mean, stddev, err := provider.CategoryCountStats(categoryFeatureID)
	if err != nil {
		logger.Error("category count stats failed", "error", err)
		os.Exit(1)
	}
	fmt.Printf("category counts: mean=%.1f stddev=%.1f\n", mean, stddev)

	p := plot.New()
	p.Title.Text = "Row Count by Category"
	p.Y.Label.Text = "Rows"

	bars, err := plotter.NewBarChart(values, vg.Points(30))
	if err != nil {
		logger.Error("bar chart build failed", "error", err)
		os.Exit(1)
	}
	bars.Color = plotter.DefaultLineStyle.Color
	p.Add(bars)

	names := make([]string, len(counts))
	for i, c := range counts {
		names[i] = fmt.Sprintf("%d", c.Category)
	}
	p.NominalX(names...)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, "category_counts.png"); err != nil {
		logger.Error("save failed", "error", err)
		os.Exit(1)
	}

	fmt.Println("Plot saved as category_counts.png")
}
