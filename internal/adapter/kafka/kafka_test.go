package kafka

import (
	"testing"
	"time"

	"github.com/carbonwatch/emissions-dataprep/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 12, 9, 30, 0, 0, time.UTC)
	manifest := domain.DatasetManifest{
		Stage:      "fit",
		Rows:       1200,
		Facilities: 85,
		SplitRows: map[domain.Split]int{
			domain.SplitTrain: 800,
			domain.SplitVal:   200,
			domain.SplitTest:  200,
		},
		TrainValRatio: 0.8,
		TestYear:      2023,
		PreparedAt:    now,
	}

	msg, err := serializeToMessage(manifest)
	require.NoError(t, err)

	assert.Equal(t, []byte("fit"), msg.Key)
	assert.Contains(t, string(msg.Value), `"rows":1200`)
	assert.Contains(t, string(msg.Value), `"train":800`)
	assert.Len(t, msg.Headers, 2)
	assert.Equal(t, "stage", msg.Headers[0].Key)
	assert.Equal(t, []byte("fit"), msg.Headers[0].Value)
	assert.Equal(t, "prepared_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestSerializeToMessage_EmptySplits(t *testing.T) {
	msg, err := serializeToMessage(domain.DatasetManifest{Stage: "test"})
	require.NoError(t, err)

	assert.Equal(t, []byte("test"), msg.Key)
	assert.Contains(t, string(msg.Value), `"stage":"test"`)
}
