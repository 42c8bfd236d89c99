package dataset_test

import (
	"testing"

	"github.com/carbonwatch/emissions-dataprep/internal/dataset"
	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeSample(target float32, fill float32) domain.Sample {
	img := domain.NewTensor(2, 2, 2)
	for i := range img.Data {
		img.Data[i] = fill
	}
	return domain.Sample{
		Image:    img,
		Target:   target,
		Metadata: map[string]any{domain.ColFacilityID: int64(1)},
	}
}

func TestStack(t *testing.T) {
	batch, err := dataset.Stack([]domain.Sample{makeSample(1, 10), makeSample(2, 20), makeSample(3, 30)})
	require.NoError(t, err)

	assert.Equal(t, 3, batch.Len())
	assert.Equal(t, []int{3, 2, 2, 2}, batch.Images.Dims)
	assert.Equal(t, []float32{1, 2, 3}, batch.Targets)
	require.Len(t, batch.Metadata, 3)

	// Second sample occupies the second image slot.
	assert.Equal(t, float32(20), batch.Images.Data[8])
}

func TestStack_Empty(t *testing.T) {
	_, err := dataset.Stack(nil)
	assert.Error(t, err)
}

func TestStack_ShapeMismatch(t *testing.T) {
	odd := domain.Sample{Image: domain.NewTensor(3, 2, 2), Target: 1}
	_, err := dataset.Stack([]domain.Sample{makeSample(1, 1), odd})
	assert.ErrorContains(t, err, "shape")
}

func TestBatchTensors(t *testing.T) {
	batch, err := dataset.Stack([]domain.Sample{makeSample(1, 10), makeSample(2, 20)})
	require.NoError(t, err)

	images, targets, err := batch.Tensors()
	require.NoError(t, err)
	assert.NotNil(t, images)
	assert.NotNil(t, targets)
}

func TestBatchTensors_Empty(t *testing.T) {
	_, _, err := dataset.Batch{}.Tensors()
	assert.Error(t, err)
}
