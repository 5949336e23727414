package encoding

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	scigoErrors "github.com/ezoic/scigo/pkg/errors"
)

// GlobalMean returns the label mean over every row this Provider
// ingested. Valid after FinishProcess.
func (p *Provider) GlobalMean() (float64, error) {
	if !p.state.IsFitted() {
		return 0, scigoErrors.NewNotFittedError("Provider", "GlobalMean")
	}
	return p.folds.GlobalMean(), nil
}

// CategoryCountStats returns the mean and standard deviation of fid's
// per-category row counts, computed with gonum/stat.MeanStdDev.
func (p *Provider) CategoryCountStats(fid int) (mean, stddev float64, err error) {
	counts, err := p.CategoryCounts(fid)
	if err != nil {
		return 0, 0, err
	}
	if len(counts) == 0 {
		return 0, 0, nil
	}
	x := make([]float64, len(counts))
	for i, c := range counts {
		x[i] = float64(c.Count)
	}
	mean, stddev = stat.MeanStdDev(x, nil)
	return mean, stddev, nil
}

// CategoryCount pairs one observed category value with its all-folds row
// count, the shape cmd/encoding_report renders as a bar chart.
type CategoryCount struct {
	Category int32
	Count    uint64
}

// CategoryCounts returns fid's observed categories and all-folds row
// counts, sorted ascending by category value. Returns a *ConfigConflict
// error if fid isn't one of the configured categorical features.
func (p *Provider) CategoryCounts(fid int) ([]CategoryCount, error) {
	if !p.state.IsFitted() {
		return nil, scigoErrors.NewNotFittedError("Provider", "CategoryCounts")
	}
	if !p.cfg.IsCategorical(fid) {
		return nil, scigoErrors.NewConfigConflictError("Provider.CategoryCounts", "feature id is not categorical")
	}

	cats := p.stats.FeatureCategories(fid)
	out := make([]CategoryCount, 0, len(cats))
	for _, cat := range cats {
		_, count := p.stats.LookupInfer(fid, cat)
		out = append(out, CategoryCount{Category: cat, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}
