package domain

import "fmt"

// DarkPixelIntensity is the raw 8-bit intensity below which a channel value
// counts as dark. Sentinel-2 nodata and night pixels decode to exact zeros,
// but lossy reprojection can smear them into values just above zero.
const DarkPixelIntensity float32 = 1.0

// Tensor is a dense float32 array with row-major layout. Images use CHW
// dimensions; stacked batches prepend a batch dimension.
type Tensor struct {
	Dims []int
	Data []float32
}

// NewTensor allocates a zero-filled tensor with the given dimensions.
func NewTensor(dims ...int) Tensor {
	size := 1
	for _, d := range dims {
		size *= d
	}
	return Tensor{Dims: dims, Data: make([]float32, size)}
}

// Rank returns the number of dimensions.
func (t Tensor) Rank() int { return len(t.Dims) }

// Size returns the total element count.
func (t Tensor) Size() int { return len(t.Data) }

// IsZero reports whether the tensor is unallocated.
func (t Tensor) IsZero() bool { return t.Dims == nil && t.Data == nil }

// SameShape reports whether both tensors have identical dimensions.
func (t Tensor) SameShape(o Tensor) bool {
	if len(t.Dims) != len(o.Dims) {
		return false
	}
	for i := range t.Dims {
		if t.Dims[i] != o.Dims[i] {
			return false
		}
	}
	return true
}

// SqueezeLeading drops leading dimensions of size one, keeping at least one
// dimension. A transform that batches internally returns [1,C,H,W]; the
// stream yields [C,H,W].
func (t Tensor) SqueezeLeading() Tensor {
	dims := t.Dims
	for len(dims) > 1 && dims[0] == 1 {
		dims = dims[1:]
	}
	return Tensor{Dims: dims, Data: t.Data}
}

// At returns the element at the given CHW position of a rank-3 tensor.
func (t Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Dims[1]+y)*t.Dims[2]+x]
}

// Set writes the element at the given CHW position of a rank-3 tensor.
func (t Tensor) Set(c, y, x int, v float32) {
	t.Data[(c*t.Dims[1]+y)*t.Dims[2]+x] = v
}

// DarkFraction returns the fraction of pixel positions of a CHW image whose
// every channel is below DarkPixelIntensity.
func DarkFraction(img Tensor) (float64, error) {
	if img.Rank() != 3 {
		return 0, fmt.Errorf("dark fraction needs a CHW image, got rank %d", img.Rank())
	}
	channels, height, width := img.Dims[0], img.Dims[1], img.Dims[2]
	pixels := height * width
	if pixels == 0 {
		return 0, nil
	}

	dark := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			allDark := true
			for c := 0; c < channels; c++ {
				if img.At(c, y, x) >= DarkPixelIntensity {
					allDark = false
					break
				}
			}
			if allDark {
				dark++
			}
		}
	}
	return float64(dark) / float64(pixels), nil
}

// TooDark reports whether the image's dark-pixel fraction exceeds
// maxDarkFrac.
func TooDark(img Tensor, maxDarkFrac float64) (bool, error) {
	frac, err := DarkFraction(img)
	if err != nil {
		return false, err
	}
	return frac > maxDarkFrac, nil
}
