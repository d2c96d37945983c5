package generation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, summarize(nil))

	at := time.Unix(0, 0)
	infos := []Info{
		{State: StateCompleted, Applied: 4, IssuedAt: at, FinishedAt: at.Add(100 * time.Millisecond)},
		{State: StateCompleted, Applied: 2, IssuedAt: at, FinishedAt: at.Add(300 * time.Millisecond)},
		{State: StateSuperseded, Applied: 1, Discarded: 1, IssuedAt: at, FinishedAt: at.Add(200 * time.Millisecond)},
		{State: StateCompleted, Error: "boom", IssuedAt: at, FinishedAt: at.Add(400 * time.Millisecond)},
	}

	s := summarize(infos)
	assert.Equal(t, 4, s.Finished)
	assert.Equal(t, 2, s.Completed)
	assert.Equal(t, 1, s.Superseded)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 250, s.MeanMillis, 1e-9)
	assert.InDelta(t, 2, s.MeanChunks, 1e-9)
	assert.InDelta(t, 200, s.P50Millis, 1e-9)
	assert.InDelta(t, 400, s.P95Millis, 1e-9)
}
