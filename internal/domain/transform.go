package domain

import (
	"math/rand"

	"gonum.org/v1/gonum/stat"
)

// Transform is a pure image-tensor transformation. A nil Transform means
// identity.
type Transform func(Tensor) Tensor

// Chain composes transforms left to right.
func Chain(steps ...Transform) Transform {
	return func(img Tensor) Tensor {
		for _, step := range steps {
			img = step(img)
		}
		return img
	}
}

// Standardize rescales an image to zero mean and unit variance. Images with
// zero variance are shifted to zero but not scaled.
func Standardize() Transform {
	return func(img Tensor) Tensor {
		xs := make([]float64, len(img.Data))
		for i, v := range img.Data {
			xs[i] = float64(v)
		}
		mean, std := stat.MeanStdDev(xs, nil)

		out := NewTensor(img.Dims...)
		for i, v := range img.Data {
			if std > 0 {
				out.Data[i] = float32((float64(v) - mean) / std)
			} else {
				out.Data[i] = float32(float64(v) - mean)
			}
		}
		return out
	}
}

// RandomHorizontalFlip mirrors a CHW image left-to-right with probability p.
// Non-rank-3 tensors pass through untouched.
func RandomHorizontalFlip(rng *rand.Rand, p float64) Transform {
	return func(img Tensor) Tensor {
		if img.Rank() != 3 || rng.Float64() >= p {
			return img
		}
		out := NewTensor(img.Dims...)
		channels, height, width := img.Dims[0], img.Dims[1], img.Dims[2]
		for c := 0; c < channels; c++ {
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					out.Set(c, y, width-1-x, img.At(c, y, x))
				}
			}
		}
		return out
	}
}

// TrainTransforms returns the augmenting transform used for training data.
func TrainTransforms(seed int64) Transform {
	return Chain(
		Standardize(),
		RandomHorizontalFlip(rand.New(rand.NewSource(seed)), 0.5),
	)
}

// EvalTransforms returns the deterministic transform used for validation and
// test data.
func EvalTransforms() Transform {
	return Standardize()
}
