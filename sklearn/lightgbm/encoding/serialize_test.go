package encoding

import (
	"bytes"
	"strings"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/stretchr/testify/require"
)

func fittedTestProvider(t *testing.T) *Provider {
	t.Helper()
	cfg, err := NewConfig(2, []int{0, 1}, []EncoderKind{CountEncoderKind, TargetLabelMeanEncoderKind},
		WithPriorWeight(1.5), WithSeed(42), WithKeepRaw(true))
	require.NoError(t, err)
	p, err := NewProvider(cfg, WithNumOriginalFeatures(2))
	require.NoError(t, err)

	accessor := fixedRowAccessor{rows: [][]float64{
		{0, 1}, {0, 0}, {1, 1}, {1, 0}, {0, 1}, {2, 0},
	}}
	labels := mat.NewDense(6, 1, []float64{1, 0, 1, 0, 1, 0})
	require.NoError(t, p.IngestDense(accessor, 6, labels))
	require.NoError(t, p.Finish())
	return p
}

func TestSerializeLine_RoundTrip(t *testing.T) {
	p := fittedTestProvider(t)

	var buf bytes.Buffer
	require.NoError(t, p.SerializeLine(&buf))

	restored, err := DeserializeLine(&buf)
	require.NoError(t, err)

	require.Equal(t, p.NumOriginalFeatures(), restored.NumOriginalFeatures())
	require.Equal(t, p.NumTotalFeatures(), restored.NumTotalFeatures())

	for _, row := range [][]float64{{0, 0}, {1, 0}, {2, 0}} {
		want, err := p.TransformInfer(row)
		require.NoError(t, err)
		got, err := restored.TransformInfer(row)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	names, err := p.ExtendFeatureNames([]string{"city", "device"})
	require.NoError(t, err)
	restoredNames, err := restored.ExtendFeatureNames([]string{"city", "device"})
	require.NoError(t, err)
	require.Equal(t, names, restoredNames)
}

func TestSerializeJSON_RoundTrip(t *testing.T) {
	p := fittedTestProvider(t)

	var buf bytes.Buffer
	require.NoError(t, p.SerializeJSON(&buf))

	restored, err := DeserializeJSON(&buf)
	require.NoError(t, err)

	require.Equal(t, p.NumOriginalFeatures(), restored.NumOriginalFeatures())
	require.Equal(t, p.NumTotalFeatures(), restored.NumTotalFeatures())

	for _, row := range [][]float64{{0, 0}, {1, 0}, {2, 0}} {
		want, err := p.TransformInfer(row)
		require.NoError(t, err)
		got, err := restored.TransformInfer(row)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
}

func TestSerializeLine_UnfittedProviderRejected(t *testing.T) {
	cfg, err := NewConfig(1, []int{0}, []EncoderKind{CountEncoderKind})
	require.NoError(t, err)
	p, err := NewProvider(cfg)
	require.NoError(t, err)

	var buf bytes.Buffer
	err = p.SerializeLine(&buf)
	require.Error(t, err)

	err = p.SerializeJSON(&buf)
	require.Error(t, err)
}

func TestDeserializeLine_MalformedInputs(t *testing.T) {
	_, err := DeserializeLine(strings.NewReader("not a valid line at all\n"))
	require.Error(t, err)

	_, err = DeserializeLine(strings.NewReader("num_original_features=2\n"))
	require.Error(t, err, "missing required header fields")

	minimalHeader := "num_original_features=1\n" +
		"num_total_features=2\n" +
		"keep_raw=false\n" +
		"prior_weight=1\n" +
		"categorical_features=0\n" +
		"fold_prior=0.5\n" +
		"type=not_a_real_encoder\n" +
		"categorical_feature_index_to_encoded_feature_index=0:1\n"
	_, err = DeserializeLine(strings.NewReader(minimalHeader))
	require.Error(t, err, "unknown encoder type tag")

	missingMapping := "num_original_features=1\n" +
		"num_total_features=2\n" +
		"keep_raw=false\n" +
		"prior_weight=1\n" +
		"categorical_features=0\n" +
		"fold_prior=0.5\n" +
		"type=count_encoder\n"
	_, err = DeserializeLine(strings.NewReader(missingMapping))
	require.Error(t, err, "encoder block missing its column mapping line")
}

func TestDeserializeJSON_MalformedInputs(t *testing.T) {
	_, err := DeserializeJSON(strings.NewReader("{not valid json"))
	require.Error(t, err)

	_, err = DeserializeJSON(strings.NewReader(`{"encoders": []}`))
	require.Error(t, err, "no encoders present")

	_, err = DeserializeJSON(strings.NewReader(`{
		"num_original_features": 1, "num_total_features": 2,
		"prior_weight": 1, "categorical_features": [0], "fold_prior": [0.5],
		"encoders": [{"name": "target_encoder", "categorical_feature_index_to_encoded_feature_index": [{"cat_fid":0,"convert_fid":1}]}]
	}`))
	require.Error(t, err, "target_encoder entry missing its prior")
}
