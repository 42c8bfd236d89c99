package dataset

import (
	"errors"
	"fmt"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/gomlx/gomlx/pkg/core/tensors"
)

// Batch holds stacked samples: images as one [B,C,H,W] tensor, targets as a
// [B] vector, and per-sample metadata kept as a parallel slice.
type Batch struct {
	Images   domain.Tensor
	Targets  []float32
	Metadata []map[string]any
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int { return len(b.Targets) }

// Stack assembles samples into a batch. Every sample must carry a CHW image
// of identical shape.
func Stack(samples []domain.Sample) (Batch, error) {
	if len(samples) == 0 {
		return Batch{}, errors.New("cannot stack an empty batch")
	}
	first := samples[0].Image
	if first.Rank() != 3 {
		return Batch{}, fmt.Errorf("expected CHW images, got rank %d", first.Rank())
	}

	images := domain.NewTensor(append([]int{len(samples)}, first.Dims...)...)
	targets := make([]float32, len(samples))
	metadata := make([]map[string]any, len(samples))

	stride := first.Size()
	for i, s := range samples {
		if !s.Image.SameShape(first) {
			return Batch{}, fmt.Errorf("sample %d image shape %v does not match %v", i, s.Image.Dims, first.Dims)
		}
		copy(images.Data[i*stride:(i+1)*stride], s.Image.Data)
		targets[i] = s.Target
		metadata[i] = s.Metadata
	}

	return Batch{Images: images, Targets: targets, Metadata: metadata}, nil
}

// Tensors converts the batch into gomlx tensors for a training loop:
// images [B,C,H,W] and targets [B].
func (b Batch) Tensors() (images *tensors.Tensor, targets *tensors.Tensor, err error) {
	if b.Len() == 0 {
		return nil, nil, errors.New("empty batch")
	}
	if b.Images.Rank() != 4 {
		return nil, nil, fmt.Errorf("expected [B,C,H,W] images, got rank %d", b.Images.Rank())
	}

	batch, channels, height, width := b.Images.Dims[0], b.Images.Dims[1], b.Images.Dims[2], b.Images.Dims[3]
	nested := make([][][][]float32, batch)
	for n := 0; n < batch; n++ {
		nested[n] = make([][][]float32, channels)
		for c := 0; c < channels; c++ {
			nested[n][c] = make([][]float32, height)
			for y := 0; y < height; y++ {
				offset := ((n*channels+c)*height + y) * width
				nested[n][c][y] = b.Images.Data[offset : offset+width]
			}
		}
	}

	return tensors.FromAnyValue(nested), tensors.FromAnyValue(b.Targets), nil
}
