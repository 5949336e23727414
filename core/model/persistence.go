package model

import (
	"encoding/gob"
	"io"
	"os"

	scigoErrors "github.com/ezoic/scigo/pkg/errors"
)

// SaveModel persists estimator to path using encoding/gob. estimator must be
// a pointer to a struct whose exported fields hold the model state.
func SaveModel(estimator interface{}, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return scigoErrors.Wrapf(err, "failed to create file %s", path)
	}
	defer func() { _ = f.Close() }()

	if err := SaveModelToWriter(estimator, f); err != nil {
		return err
	}
	return nil
}

// LoadModel populates estimator from the gob stream stored at path.
// estimator must be a pointer to the same concrete type SaveModel was given.
func LoadModel(estimator interface{}, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return scigoErrors.Wrapf(err, "failed to open file %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadModelFromReader(estimator, f)
}

// SaveModelToWriter gob-encodes estimator onto w.
func SaveModelToWriter(estimator interface{}, w io.Writer) error {
	enc := gob.NewEncoder(w)
	if err := enc.Encode(estimator); err != nil {
		return scigoErrors.Wrapf(err, "failed to encode model")
	}
	return nil
}

// LoadModelFromReader decodes a gob stream produced by SaveModelToWriter
// into estimator.
func LoadModelFromReader(estimator interface{}, r io.Reader) error {
	dec := gob.NewDecoder(r)
	if err := dec.Decode(estimator); err != nil {
		return scigoErrors.Wrapf(err, "failed to decode model")
	}
	return nil
}
