package encoding

import (
	"fmt"
	"sort"

	scigoErrors "github.com/ezoic/scigo/pkg/errors"
)

// Encoder is the value-formula contract shared by every encoder variant.
// value_train and value_infer are pure functions of the aggregates a
// StatStore lookup returns; encoders hold no per-row state, only the
// feature-id-to-output-column mapping assigned during FinishProcess.
type Encoder interface {
	// Kind identifies the variant for serialization and for building the
	// derived column name.
	Kind() EncoderKind

	// ValueTrain computes the out-of-fold encoded value used while
	// transforming training rows.
	ValueTrain(labelSum float64, countInFold, countAllFolds uint64, foldPrior float64) (float64, error)

	// ValueInfer computes the all-folds encoded value used at inference
	// time and when transforming held-out rows.
	ValueInfer(labelSum float64, countInFold, countAllFolds uint64) (float64, error)

	// OutputColumn returns the assigned output column id for fid, and
	// whether one has been assigned (false before FinishProcess runs).
	OutputColumn(fid int) (int, bool)

	// FeatureOrder returns the categorical feature ids this encoder has
	// column assignments for, sorted ascending.
	FeatureOrder() []int

	setOutputColumn(fid, col int)
	priorValue() (float64, bool)
}

// baseEncoder holds the feature_id -> output_column_id map every variant
// shares.
type baseEncoder struct {
	columns map[int]int
}

func newBaseEncoder() baseEncoder {
	return baseEncoder{columns: make(map[int]int)}
}

func (b *baseEncoder) OutputColumn(fid int) (int, bool) {
	col, ok := b.columns[fid]
	return col, ok
}

func (b *baseEncoder) setOutputColumn(fid, col int) {
	b.columns[fid] = col
}

func (b *baseEncoder) FeatureOrder() []int {
	ids := make([]int, 0, len(b.columns))
	for fid := range b.columns {
		ids = append(ids, fid)
	}
	sort.Ints(ids)
	return ids
}

// CountEncoder emits the all-folds row count for a category in both views.
type CountEncoder struct {
	baseEncoder
}

// NewCountEncoder returns an unassigned CountEncoder.
func NewCountEncoder() *CountEncoder {
	return &CountEncoder{baseEncoder: newBaseEncoder()}
}

func (e *CountEncoder) Kind() EncoderKind { return CountEncoderKind }

func (e *CountEncoder) ValueTrain(_ float64, _, countAllFolds uint64, _ float64) (float64, error) {
	return float64(countAllFolds), nil
}

func (e *CountEncoder) ValueInfer(_ float64, _, countAllFolds uint64) (float64, error) {
	return float64(countAllFolds), nil
}

func (e *CountEncoder) priorValue() (float64, bool) { return 0, false }

// TargetEncoder blends the out-of-fold (training) or all-folds (inference)
// label mean with a fixed, configured prior.
type TargetEncoder struct {
	baseEncoder
	prior       float64
	priorWeight float64
}

// NewTargetEncoder returns a TargetEncoder with a fixed prior P.
func NewTargetEncoder(prior, priorWeight float64) *TargetEncoder {
	return &TargetEncoder{baseEncoder: newBaseEncoder(), prior: prior, priorWeight: priorWeight}
}

func (e *TargetEncoder) Kind() EncoderKind { return TargetEncoderKind }

func (e *TargetEncoder) ValueTrain(labelSum float64, countInFold, _ uint64, _ float64) (float64, error) {
	return (labelSum + e.prior*e.priorWeight) / (float64(countInFold) + e.priorWeight), nil
}

func (e *TargetEncoder) ValueInfer(labelSum float64, countInFold, _ uint64) (float64, error) {
	return (labelSum + e.prior*e.priorWeight) / (float64(countInFold) + e.priorWeight), nil
}

func (e *TargetEncoder) priorValue() (float64, bool) { return e.prior, true }

// TargetLabelMeanEncoder blends the label mean with the per-fold prior at
// training time and with the global label mean, frozen at end-of-fit, at
// inference time. Both views are fatal to call before that prior is set.
type TargetLabelMeanEncoder struct {
	baseEncoder
	priorWeight float64
	prior       float64
	priorSet    bool
}

// NewTargetLabelMeanEncoder returns a TargetLabelMeanEncoder with its prior
// unset; SetPrior must run before either value formula is called.
func NewTargetLabelMeanEncoder(priorWeight float64) *TargetLabelMeanEncoder {
	return &TargetLabelMeanEncoder{baseEncoder: newBaseEncoder(), priorWeight: priorWeight}
}

func (e *TargetLabelMeanEncoder) Kind() EncoderKind { return TargetLabelMeanEncoderKind }

// SetPrior freezes the global label mean this encoder's inference view
// will use. The training view uses the fold prior passed to ValueTrain.
func (e *TargetLabelMeanEncoder) SetPrior(globalMean float64) {
	e.prior = globalMean
	e.priorSet = true
}

func (e *TargetLabelMeanEncoder) ValueTrain(labelSum float64, countInFold, _ uint64, foldPrior float64) (float64, error) {
	if !e.priorSet {
		return 0, scigoErrors.NewUnsetPriorError("TargetLabelMeanEncoder.ValueTrain")
	}
	return (labelSum + foldPrior*e.priorWeight) / (float64(countInFold) + e.priorWeight), nil
}

func (e *TargetLabelMeanEncoder) ValueInfer(labelSum float64, countInFold, _ uint64) (float64, error) {
	if !e.priorSet {
		return 0, scigoErrors.NewUnsetPriorError("TargetLabelMeanEncoder.ValueInfer")
	}
	return (labelSum + e.prior*e.priorWeight) / (float64(countInFold) + e.priorWeight), nil
}

func (e *TargetLabelMeanEncoder) priorValue() (float64, bool) {
	if !e.priorSet {
		return 0, false
	}
	return e.prior, true
}

// newEncoder builds the zero-value (unfrozen) Encoder for kind, using cfg
// for the parameters each variant needs at construction time.
func newEncoder(kind EncoderKind, cfg *Config) (Encoder, error) {
	switch kind {
	case CountEncoderKind:
		return NewCountEncoder(), nil
	case TargetEncoderKind:
		return NewTargetEncoder(cfg.targetPrior, cfg.priorWeight), nil
	case TargetLabelMeanEncoderKind:
		return NewTargetLabelMeanEncoder(cfg.priorWeight), nil
	default:
		return nil, fmt.Errorf("encoding: unknown encoder kind %d", kind)
	}
}

// derivedName builds the "<encoder_name>_<original_name>" column name
// extend_feature_names emits for fid's encoded column under this encoder.
func derivedName(kind EncoderKind, originalName string) string {
	return kind.baseName() + "_" + originalName
}
