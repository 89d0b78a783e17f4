package main

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"k8s.io/klog/v2"
)

// PadSequence truncates v to maxLen or right-pads it with pad up to maxLen.
// The result never aliases v.
func PadSequence[T any](v []T, maxLen int, pad T) []T {
	out := make([]T, maxLen)
	n := copy(out, v)
	for i := n; i < maxLen; i++ {
		out[i] = pad
	}
	return out
}

// EncodePad maps tokens to indices and fixes the length at maxLen, padding
// with UnknownIndex.
func EncodePad(tokens []string, idx *TokenIndex, maxLen int) []int {
	return PadSequence(idx.LookupMany(tokens), maxLen, UnknownIndex)
}

// EncodeText tokenizes text and encodes it with EncodePad.
func EncodeText(text string, idx *TokenIndex, maxLen int) []int {
	return EncodePad(Tokenize(text), idx, maxLen)
}

// EncodeBatch encodes each text and stacks the rows into an Int tensor of
// shape (len(texts), maxLen).
func EncodeBatch(texts []string, idx *TokenIndex, maxLen int) (*tensor.Dense, error) {
	rows := make([][]int, len(texts))
	for i, text := range texts {
		rows[i] = EncodeText(text, idx, maxLen)
	}
	return stackRows(rows, maxLen)
}

func stackRows(rows [][]int, width int) (*tensor.Dense, error) {
	if len(rows) == 0 {
		return nil, errors.Wrap(ErrEmptyDataset, "stacking rows")
	}
	backing := make([]int, 0, len(rows)*width)
	for i, row := range rows {
		if len(row) != width {
			return nil, &ArrayConversionError{Row: i, Got: len(row), Expected: width}
		}
		backing = append(backing, row...)
	}
	return tensor.New(tensor.WithShape(len(rows), width), tensor.WithBacking(backing)), nil
}

// BagOfWords converts an (n, maxLen) index matrix to an (n, vocabSize)
// matrix of per-row token frequencies. Multiplying it by an embedding table
// yields the mean embedding of each row.
func BagOfWords(batch *tensor.Dense, vocabSize int) (*tensor.Dense, error) {
	shape := batch.Shape()
	if len(shape) != 2 {
		return nil, errors.Wrapf(ErrShapeMismatch, "bag of words wants a matrix, got shape %v", shape)
	}
	ids, ok := batch.Data().([]int)
	if !ok {
		return nil, errors.Wrapf(ErrShapeMismatch, "bag of words wants int indices, got %v", batch.Dtype())
	}
	n, width := shape[0], shape[1]
	weight := float32(1) / float32(width)

	bow := make([]float32, n*vocabSize)
	for r := 0; r < n; r++ {
		for _, id := range ids[r*width : (r+1)*width] {
			if id < 0 || id >= vocabSize {
				return nil, &ArrayConversionError{Row: r, Reason: "token index out of vocabulary range"}
			}
			bow[r*vocabSize+id] += weight
		}
	}
	klog.V(2).Infof("bag of words: %d rows x %d tokens", n, vocabSize)
	return tensor.New(tensor.WithShape(n, vocabSize), tensor.WithBacking(bow)), nil
}

// LabelMatrix reshapes a flat multi-hot encoding to (rows, nClasses).
func LabelMatrix(flat []float32, nClasses int) (*tensor.Dense, error) {
	if nClasses <= 0 {
		return nil, &ArrayConversionError{Reason: "no classes to encode"}
	}
	if len(flat)%nClasses != 0 {
		return nil, &ArrayConversionError{
			Row:      len(flat) / nClasses,
			Got:      len(flat) % nClasses,
			Expected: nClasses,
		}
	}
	rows := len(flat) / nClasses
	if rows == 0 {
		return nil, errors.Wrap(ErrEmptyDataset, "building label matrix")
	}
	backing := append([]float32(nil), flat...)
	return tensor.New(tensor.WithShape(rows, nClasses), tensor.WithBacking(backing)), nil
}

// splitRows views row-major data as one slice per row without copying.
func splitRows(data []float32, rows, cols int) [][]float32 {
	out := make([][]float32, rows)
	for r := range out {
		out[r] = data[r*cols : (r+1)*cols]
	}
	return out
}
