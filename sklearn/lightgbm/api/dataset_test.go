package api

import (
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/scigo/sklearn/lightgbm/encoding"
)

func TestDataset_EncodeCategoricalFeatures(t *testing.T) {
	data := mat.NewDense(4, 2, []float64{
		0, 10,
		0, 11,
		1, 12,
		1, 13,
	})
	label := mat.NewDense(4, 1, []float64{1, 0, 1, 0})

	ds, err := NewDataset(data, label, WithCategoricalFeatures([]int{0}))
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	cfg, err := encoding.NewConfig(2, []int{0}, []encoding.EncoderKind{encoding.CountEncoderKind})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	provider, err := ds.EncodeCategoricalFeatures(cfg)
	if err != nil {
		t.Fatalf("EncodeCategoricalFeatures: %v", err)
	}

	if ds.NumFeature() != provider.NumTotalFeatures() {
		t.Errorf("nFeatures = %d, want %d", ds.NumFeature(), provider.NumTotalFeatures())
	}
	if len(ds.CategoricalFeatures) != 0 {
		t.Errorf("CategoricalFeatures should be cleared after encoding, got %v", ds.CategoricalFeatures)
	}
	if len(ds.FeatureNames) != ds.NumFeature() {
		t.Errorf("len(FeatureNames) = %d, want %d", len(ds.FeatureNames), ds.NumFeature())
	}

	rows, cols := ds.Data.Dims()
	if rows != 4 || cols != provider.NumTotalFeatures() {
		t.Errorf("Data dims = (%d, %d), want (4, %d)", rows, cols, provider.NumTotalFeatures())
	}
	// the raw categorical column is zeroed out in favor of its encoded column
	if ds.Data.At(0, 0) != 0 {
		t.Errorf("Data[0][0] = %v, want 0 (raw categorical column suppressed)", ds.Data.At(0, 0))
	}
}

func TestDataset_EncodeCategoricalFeatures_RequiresCategoricalFeatures(t *testing.T) {
	data := mat.NewDense(2, 1, []float64{0, 1})
	label := mat.NewDense(2, 1, []float64{1, 0})
	ds, err := NewDataset(data, label)
	if err != nil {
		t.Fatalf("NewDataset: %v", err)
	}

	cfg, err := encoding.NewConfig(1, []int{0}, []encoding.EncoderKind{encoding.CountEncoderKind})
	if err != nil {
		t.Fatalf("NewConfig: %v", err)
	}

	if _, err := ds.EncodeCategoricalFeatures(cfg); err == nil {
		t.Error("expected an error when the dataset has no categorical features configured")
	}
}
