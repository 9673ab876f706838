package rollout

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marloweh/suggestd/internal/common"
	"github.com/marloweh/suggestd/internal/model"
)

func newController(t *testing.T, cfg model.RolloutConfig) *Controller {
	t.Helper()
	c, err := New(cfg)
	require.NoError(t, err)
	return c
}

func TestController_ModeHeuristicNeverServesModel(t *testing.T) {
	c := newController(t, model.RolloutConfig{
		Mode: model.ModeHeuristic, CanaryPct: 100, Shadow: true, MinConfidence: 0.5, TopK: 3,
	})

	for i := 0; i < 100; i++ {
		d := c.Decide(fmt.Sprintf("txn-%d", i))
		assert.False(t, d.ServeModel)
		assert.True(t, d.ShadowModel)
	}
}

func TestController_ModeModelIgnoresCanaryPct(t *testing.T) {
	c := newController(t, model.RolloutConfig{
		Mode: model.ModeModel, CanaryPct: 0, MinConfidence: 0.5, TopK: 3,
	})

	d := c.Decide("any-txn")
	assert.True(t, d.ServeModel)
	assert.False(t, d.ShadowModel)
}

func TestController_AutoCanaryZeroServesNone(t *testing.T) {
	c := newController(t, model.RolloutConfig{
		Mode: model.ModeAuto, CanaryPct: 0, MinConfidence: 0.5, TopK: 3,
	})

	for i := 0; i < 1000; i++ {
		d := c.Decide(fmt.Sprintf("txn-%d", i))
		assert.False(t, d.ServeModel)
	}
}

func TestController_AutoCanaryHundredServesAll(t *testing.T) {
	c := newController(t, model.RolloutConfig{
		Mode: model.ModeAuto, CanaryPct: 100, MinConfidence: 0.5, TopK: 3,
	})

	for i := 0; i < 1000; i++ {
		d := c.Decide(fmt.Sprintf("txn-%d", i))
		assert.True(t, d.ServeModel)
	}
}

func TestController_AutoCanaryFractionApproximatesPct(t *testing.T) {
	c := newController(t, model.RolloutConfig{
		Mode: model.ModeAuto, CanaryPct: 10, MinConfidence: 0.5, TopK: 3,
	})

	const n = 10000
	served := 0
	for i := 0; i < n; i++ {
		if c.Decide(fmt.Sprintf("txn-%d", i)).ServeModel {
			served++
		}
	}

	fraction := float64(served) / n
	assert.InDelta(t, 0.10, fraction, 0.03, "served fraction %0.4f", fraction)
}

func TestController_SamplingIsDeterministicPerID(t *testing.T) {
	c := newController(t, model.RolloutConfig{
		Mode: model.ModeAuto, CanaryPct: 50, MinConfidence: 0.5, TopK: 3,
	})

	for i := 0; i < 100; i++ {
		id := fmt.Sprintf("txn-%d", i)
		first := c.Decide(id)
		for retry := 0; retry < 5; retry++ {
			assert.Equal(t, first, c.Decide(id), "id %s flapped", id)
		}
	}
}

func TestController_ApplyValidates(t *testing.T) {
	c := newController(t, DefaultConfig())

	err := c.Apply(model.RolloutConfig{Mode: "bogus", TopK: 1})
	assert.True(t, errors.Is(err, common.ErrInvalidConfig))
	assert.Error(t, c.Apply(model.RolloutConfig{Mode: model.ModeAuto, CanaryPct: 150, TopK: 1}))
	assert.Error(t, c.Apply(model.RolloutConfig{Mode: model.ModeAuto, MinConfidence: 1.5, TopK: 1}))
	assert.Error(t, c.Apply(model.RolloutConfig{Mode: model.ModeAuto, TopK: 0}))

	// Failed applies leave the previous snapshot intact.
	assert.Equal(t, DefaultConfig(), c.Snapshot())
}

func TestController_SnapshotConsistentUnderConcurrentApply(t *testing.T) {
	c := newController(t, DefaultConfig())

	cfgA := model.RolloutConfig{Mode: model.ModeAuto, CanaryPct: 10, MinConfidence: 0.6, TopK: 3}
	cfgB := model.RolloutConfig{Mode: model.ModeModel, CanaryPct: 90, MinConfidence: 0.8, TopK: 5, Shadow: true}

	var wg sync.WaitGroup
	done := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			_ = c.Apply(cfgA)
			_ = c.Apply(cfgB)
		}
		close(done)
	}()

	// Every observed snapshot must be one of the whole configurations,
	// never a torn mix of fields.
	for {
		select {
		case <-done:
			wg.Wait()
			return
		default:
			snap := c.Snapshot()
			if snap != DefaultConfig() {
				assert.True(t, snap == cfgA || snap == cfgB, "torn snapshot: %+v", snap)
			}
		}
	}
}
