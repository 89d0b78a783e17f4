package main

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Param is one named parameter tensor.
type Param struct {
	Name  string
	Shape []int
	Data  []float32
}

// Checkpoint is a frozen copy of a model's parameters. Nothing mutates a
// Checkpoint after it is taken; the live model keeps training on its own
// tensors.
type Checkpoint struct {
	Params []Param
}

// newCheckpoint deep-copies the given tensors in order.
func newCheckpoint(names []string, values []tensor.Tensor) (*Checkpoint, error) {
	if len(names) != len(values) {
		return nil, errors.Errorf("checkpoint: %d names for %d tensors", len(names), len(values))
	}
	cp := &Checkpoint{Params: make([]Param, len(names))}
	for i, v := range values {
		data, ok := v.Data().([]float32)
		if !ok {
			return nil, errors.Errorf("checkpoint: parameter %q is %v, want float32", names[i], v.Dtype())
		}
		cp.Params[i] = Param{
			Name:  names[i],
			Shape: append([]int(nil), v.Shape()...),
			Data:  append([]float32(nil), data...),
		}
	}
	return cp, nil
}

// Get returns the parameter called name.
func (c *Checkpoint) Get(name string) (Param, bool) {
	for _, p := range c.Params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// Tensor returns a fresh tensor holding a copy of the named parameter.
func (c *Checkpoint) Tensor(name string) (*tensor.Dense, error) {
	p, ok := c.Get(name)
	if !ok {
		return nil, errors.Errorf("checkpoint: no parameter %q", name)
	}
	size := 1
	for _, d := range p.Shape {
		size *= d
	}
	if size != len(p.Data) {
		return nil, errors.Wrapf(ErrShapeMismatch, "parameter %q: shape %v holds %d values, have %d", name, p.Shape, size, len(p.Data))
	}
	return tensor.New(
		tensor.WithShape(p.Shape...),
		tensor.WithBacking(append([]float32(nil), p.Data...)),
	), nil
}

// SaveCheckpoint gob-encodes cp to path.
func SaveCheckpoint(path string, cp *Checkpoint) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "creating checkpoint %q", path)
	}
	if err := gob.NewEncoder(f).Encode(cp); err != nil {
		f.Close()
		return errors.Wrapf(err, "encoding checkpoint %q", path)
	}
	return errors.Wrapf(f.Close(), "closing checkpoint %q", path)
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening checkpoint %q", path)
	}
	defer f.Close()

	var cp Checkpoint
	if err := gob.NewDecoder(f).Decode(&cp); err != nil {
		return nil, errors.Wrapf(err, "decoding checkpoint %q", path)
	}
	return &cp, nil
}
