package domain_test

import (
	"math/rand"
	"testing"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fillImage builds a CHW image with every channel of every pixel at value v.
func fillImage(t *testing.T, c, h, w int, v float32) domain.Tensor {
	t.Helper()
	img := domain.NewTensor(c, h, w)
	for i := range img.Data {
		img.Data[i] = v
	}
	return img
}

func TestDarkFraction_AllBright(t *testing.T) {
	img := fillImage(t, 3, 4, 4, 128)
	frac, err := domain.DarkFraction(img)
	require.NoError(t, err)
	assert.Zero(t, frac)
}

func TestDarkFraction_HalfDark(t *testing.T) {
	img := fillImage(t, 3, 2, 2, 200)
	// Zero out two of the four pixel positions across all channels.
	for c := 0; c < 3; c++ {
		img.Set(c, 0, 0, 0)
		img.Set(c, 1, 1, 0)
	}

	frac, err := domain.DarkFraction(img)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, frac, 1e-9)
}

func TestDarkFraction_PixelDarkOnlyWhenAllChannelsDark(t *testing.T) {
	img := fillImage(t, 3, 1, 1, 0)
	img.Set(2, 0, 0, 50) // one bright channel rescues the pixel

	frac, err := domain.DarkFraction(img)
	require.NoError(t, err)
	assert.Zero(t, frac)
}

func TestDarkFraction_RejectsNonImage(t *testing.T) {
	_, err := domain.DarkFraction(domain.NewTensor(4))
	assert.Error(t, err)
}

func TestTooDark(t *testing.T) {
	dark := fillImage(t, 1, 2, 2, 0)
	bright := fillImage(t, 1, 2, 2, 255)

	got, err := domain.TooDark(dark, 0.5)
	require.NoError(t, err)
	assert.True(t, got)

	got, err = domain.TooDark(bright, 0.5)
	require.NoError(t, err)
	assert.False(t, got)
}

func TestSqueezeLeading(t *testing.T) {
	img := domain.NewTensor(1, 3, 4, 4)
	squeezed := img.SqueezeLeading()
	assert.Equal(t, []int{3, 4, 4}, squeezed.Dims)
	assert.Len(t, squeezed.Data, 3*4*4)

	// Inner singleton dimensions stay put.
	mid := domain.NewTensor(3, 1, 4)
	assert.Equal(t, []int{3, 1, 4}, mid.SqueezeLeading().Dims)

	// A fully singleton tensor keeps its last dimension.
	one := domain.NewTensor(1, 1)
	assert.Equal(t, []int{1}, one.SqueezeLeading().Dims)
}

func TestStandardize(t *testing.T) {
	img := domain.NewTensor(1, 1, 4)
	copy(img.Data, []float32{0, 2, 4, 6})

	out := domain.Standardize()(img)

	var sum float64
	for _, v := range out.Data {
		sum += float64(v)
	}
	assert.InDelta(t, 0, sum, 1e-5)
	// Input is untouched.
	assert.Equal(t, float32(0), img.Data[0])
}

func TestStandardize_ConstantImage(t *testing.T) {
	img := fillImage(t, 1, 2, 2, 7)
	out := domain.Standardize()(img)
	for _, v := range out.Data {
		assert.Zero(t, v)
	}
}

func TestRandomHorizontalFlip_AlwaysFlips(t *testing.T) {
	img := domain.NewTensor(1, 1, 3)
	copy(img.Data, []float32{1, 2, 3})

	flip := domain.RandomHorizontalFlip(rand.New(rand.NewSource(1)), 1.0)
	out := flip(img)
	assert.Equal(t, []float32{3, 2, 1}, out.Data)
}

func TestRandomHorizontalFlip_NeverFlips(t *testing.T) {
	img := domain.NewTensor(1, 1, 3)
	copy(img.Data, []float32{1, 2, 3})

	flip := domain.RandomHorizontalFlip(rand.New(rand.NewSource(1)), 0)
	out := flip(img)
	assert.Equal(t, []float32{1, 2, 3}, out.Data)
}

func TestChain(t *testing.T) {
	double := func(img domain.Tensor) domain.Tensor {
		out := domain.NewTensor(img.Dims...)
		for i, v := range img.Data {
			out.Data[i] = v * 2
		}
		return out
	}

	img := domain.NewTensor(1, 1, 2)
	copy(img.Data, []float32{1, 2})

	out := domain.Chain(double, double)(img)
	assert.Equal(t, []float32{4, 8}, out.Data)
}
