package pricing

import (
	"reweave/internal/domain/model"

	"github.com/shopspring/decimal"
)

type tier struct {
	name       model.LoyaltyTier
	minPoints  int64
	multiplier decimal.Decimal
}

// 下から順に並べる
var tiers = []tier{
	{name: model.TierBronze, minPoints: 0, multiplier: decimal.RequireFromString("1.0")},
	{name: model.TierSilver, minPoints: 1000, multiplier: decimal.RequireFromString("1.2")},
	{name: model.TierGold, minPoints: 5000, multiplier: decimal.RequireFromString("1.5")},
	{name: model.TierPlatinum, minPoints: 10000, multiplier: decimal.RequireFromString("2.0")},
}

type TierProgress struct {
	CurrentTier      model.LoyaltyTier `json:"current_tier"`
	NextTier         model.LoyaltyTier `json:"next_tier"`
	PointsToNextTier int64             `json:"points_to_next_tier"`
	Progress         int64             `json:"progress"`
}

func tierIndex(points int64) int {
	idx := 0
	for i, t := range tiers {
		if points >= t.minPoints {
			idx = i
		}
	}
	return idx
}

// ポイント残高からランクを決める
func TierFor(points int64) model.LoyaltyTier {
	return tiers[tierIndex(points)].name
}

// 次のランクまでの進捗（%）。最上位は100。
func ProgressFor(points int64) TierProgress {
	i := tierIndex(points)
	cur := tiers[i]
	if i == len(tiers)-1 {
		return TierProgress{
			CurrentTier:      cur.name,
			NextTier:         cur.name,
			PointsToNextTier: 0,
			Progress:         100,
		}
	}

	next := tiers[i+1]
	progress := (points - cur.minPoints) * 100 / (next.minPoints - cur.minPoints)
	if progress > 100 {
		progress = 100
	}

	return TierProgress{
		CurrentTier:      cur.name,
		NextTier:         next.name,
		PointsToNextTier: next.minPoints - points,
		Progress:         progress,
	}
}

// PointsForPurchase は floor(合計) にランク倍率を掛けて切り捨てる。
func PointsForPurchase(total decimal.Decimal, t model.LoyaltyTier) int64 {
	if !total.IsPositive() {
		return 0
	}
	mult := tiers[0].multiplier
	for _, x := range tiers {
		if x.name == t {
			mult = x.multiplier
		}
	}
	return total.Floor().Mul(mult).Floor().IntPart()
}
