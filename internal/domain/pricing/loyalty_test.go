package pricing

import (
	"testing"

	"reweave/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestTierFor(t *testing.T) {
	assert.Equal(t, model.TierBronze, TierFor(0))
	assert.Equal(t, model.TierBronze, TierFor(999))
	assert.Equal(t, model.TierSilver, TierFor(1000))
	assert.Equal(t, model.TierGold, TierFor(5000))
	assert.Equal(t, model.TierPlatinum, TierFor(10000))
	assert.Equal(t, model.TierPlatinum, TierFor(250000))
}

func TestProgressFor(t *testing.T) {
	p := ProgressFor(3000)
	assert.Equal(t, model.TierSilver, p.CurrentTier)
	assert.Equal(t, model.TierGold, p.NextTier)
	assert.Equal(t, int64(2000), p.PointsToNextTier)
	assert.Equal(t, int64(50), p.Progress)

	top := ProgressFor(12000)
	assert.Equal(t, model.TierPlatinum, top.CurrentTier)
	assert.Equal(t, int64(0), top.PointsToNextTier)
	assert.Equal(t, int64(100), top.Progress)
}

func TestPointsForPurchase(t *testing.T) {
	assert.Equal(t, int64(121), PointsForPurchase(d("121.99"), model.TierBronze))
	// floor(121) * 1.2 = 145.2
	assert.Equal(t, int64(145), PointsForPurchase(d("121.99"), model.TierSilver))
	assert.Equal(t, int64(181), PointsForPurchase(d("121.00"), model.TierGold))
	assert.Equal(t, int64(242), PointsForPurchase(d("121.50"), model.TierPlatinum))
	assert.Equal(t, int64(0), PointsForPurchase(d("0"), model.TierPlatinum))
}
