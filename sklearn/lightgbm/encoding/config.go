// Package encoding computes leakage-safe numeric summaries for categorical
// features ahead of histogram binning: fold-assigned target statistics,
// distributed across machines, frozen into a Provider that rewrites raw
// category columns into one or more encoded columns for both the training
// view (out-of-fold) and the inference view (all folds).
package encoding

import (
	"sort"

	scigoErrors "github.com/ezoic/scigo/pkg/errors"
)

// EncoderKind names one of the closed set of value-formula variants a
// Config may request. The kind doubles as the discriminator used by
// serialization.
type EncoderKind int

const (
	// CountEncoderKind emits the all-folds row count for a category.
	CountEncoderKind EncoderKind = iota
	// TargetEncoderKind emits a fixed-prior blended target mean.
	TargetEncoderKind
	// TargetLabelMeanEncoderKind emits a target mean blended with the
	// fold prior (training) or the global label mean (inference).
	TargetLabelMeanEncoderKind
)

// String returns the type tag used in both persisted forms.
func (k EncoderKind) String() string {
	switch k {
	case CountEncoderKind:
		return "count_encoder"
	case TargetEncoderKind:
		return "target_encoder"
	case TargetLabelMeanEncoderKind:
		return "target_encoder_label_mean"
	default:
		return "unknown_encoder"
	}
}

// baseName is the fragment extend_feature_names prefixes to each derived
// column's original feature name.
func (k EncoderKind) baseName() string {
	switch k {
	case CountEncoderKind:
		return "count"
	case TargetEncoderKind:
		return "target"
	case TargetLabelMeanEncoderKind:
		return "target_label_mean"
	default:
		return "unknown"
	}
}

// EncoderKindFromTag parses a persisted type tag, returning a ModelFormat
// error for anything unrecognized.
func EncoderKindFromTag(tag string) (EncoderKind, error) {
	switch tag {
	case "count_encoder":
		return CountEncoderKind, nil
	case "target_encoder":
		return TargetEncoderKind, nil
	case "target_encoder_label_mean":
		return TargetLabelMeanEncoderKind, nil
	default:
		return 0, scigoErrors.NewModelFormatError("EncoderKindFromTag", "unknown encoder type tag: "+tag)
	}
}

// Config is the immutable-after-construction record every Provider is built
// from. Fields are set once via NewConfig and its options; nothing in
// encoding mutates a Config after that point.
type Config struct {
	k                   int
	priorWeight         float64
	targetPrior         float64
	encoders            []EncoderKind
	keepRaw             bool
	categoricalFeatures map[int]bool
	seed                uint64
	foldProbabilities   []float64
}

// ConfigOption configures optional Config knobs, following the functional
// options shape used throughout SciGo (see api.DatasetOption).
type ConfigOption func(*Config)

// WithPriorWeight sets the pseudo-count blended into every Target/
// TargetLabelMean formula. Defaults to 1.0.
func WithPriorWeight(w float64) ConfigOption {
	return func(c *Config) { c.priorWeight = w }
}

// WithTargetPrior sets the fixed prior used by TargetEncoderKind. Defaults
// to 0.0; ignored by Count and TargetLabelMean.
func WithTargetPrior(p float64) ConfigOption {
	return func(c *Config) { c.targetPrior = p }
}

// WithKeepRaw retains the original categorical column alongside its encoded
// columns, required when a forced split names that feature directly.
func WithKeepRaw(keep bool) ConfigOption {
	return func(c *Config) { c.keepRaw = keep }
}

// WithSeed sets the deterministic fold-assignment seed. Defaults to 0.
func WithSeed(seed uint64) ConfigOption {
	return func(c *Config) { c.seed = seed }
}

// WithFoldProbabilities overrides the default uniform per-fold sampling
// distribution. len(p) must equal K.
func WithFoldProbabilities(p []float64) ConfigOption {
	return func(c *Config) {
		c.foldProbabilities = append([]float64(nil), p...)
	}
}

// NewConfig builds a Config for k folds, encoding the given categorical
// feature ids with the given ordered, non-empty encoder list.
func NewConfig(k int, categoricalFeatures []int, encoders []EncoderKind, opts ...ConfigOption) (*Config, error) {
	if k < 1 {
		return nil, scigoErrors.NewConfigConflictError("NewConfig", "fold count K must be >= 1")
	}
	if len(encoders) == 0 {
		return nil, scigoErrors.NewConfigConflictError("NewConfig", "encoder list must be non-empty")
	}

	c := &Config{
		k:           k,
		priorWeight: 1.0,
		encoders:    append([]EncoderKind(nil), encoders...),
	}

	c.categoricalFeatures = make(map[int]bool, len(categoricalFeatures))
	for _, fid := range categoricalFeatures {
		c.categoricalFeatures[fid] = true
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.priorWeight < 0 {
		return nil, scigoErrors.NewConfigConflictError("NewConfig", "prior weight must be >= 0")
	}

	if c.foldProbabilities == nil {
		c.foldProbabilities = uniformProbabilities(k)
	} else if len(c.foldProbabilities) != k {
		return nil, scigoErrors.NewConfigConflictError("NewConfig", "fold probability vector length must equal K")
	}

	return c, nil
}

func uniformProbabilities(k int) []float64 {
	p := make([]float64, k)
	for i := range p {
		p[i] = 1.0 / float64(k)
	}
	return p
}

// IsCategorical reports whether fid is one of the configured categorical
// feature ids.
func (c *Config) IsCategorical(fid int) bool {
	return c.categoricalFeatures[fid]
}

// CategoricalFeatureIDs returns the configured categorical feature ids in
// ascending order.
func (c *Config) CategoricalFeatureIDs() []int {
	ids := make([]int, 0, len(c.categoricalFeatures))
	for fid := range c.categoricalFeatures {
		ids = append(ids, fid)
	}
	sort.Ints(ids)
	return ids
}

// K returns the number of training folds.
func (c *Config) K() int { return c.k }

// PriorWeight returns the pseudo-count blended into target formulas.
func (c *Config) PriorWeight() float64 { return c.priorWeight }

// KeepRaw reports whether the original categorical column is retained.
func (c *Config) KeepRaw() bool { return c.keepRaw }

