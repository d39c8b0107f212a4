// Package score computes clear scores from judgement counts. The formulas
// and constants come from the score v2 pipeline; they feed the sortable score
// and accuracy fields of pass documents at indexing time.
package score

import (
	"math"

	"github.com/tuforums/chartdex/internal/models"
)

// Miss-deduction curve constants.
const (
	graceTiles = 315
	deducStart = 1.0
	deducEnd   = 50.0
	startDeduc = 10.0
	endDeduc   = 50.0
	deducPower = 0.7
)

// Accuracy returns the weighted judgement accuracy (xacc) in [0, 1]. An empty
// judgement set falls back to 0.95.
func Accuracy(j models.Judgements) float64 {
	count := j.Total()
	if count == 0 {
		return 0.95
	}
	total := float64(j.Perfect) +
		float64(j.EPerfect+j.LPerfect)*0.75 +
		float64(j.EarlySingle+j.LateSingle)*0.4 +
		float64(j.EarlyDouble+j.LateDouble)*0.2
	return total / float64(count)
}

// AccuracyMultiplier maps xacc onto the score multiplier: flat below 95%, a
// steep curve up to 100%, and a 10x bonus for a perfect clear.
func AccuracyMultiplier(xacc float64) float64 {
	switch {
	case xacc < 0.95:
		return 1
	case xacc < 1:
		return -0.027/(xacc-1.0054) + 0.513
	default:
		return 10
	}
}

// SpeedMultiplier maps the playback speed onto its score multiplier.
// Desert-bus charts use an inverted curve where overspeed reduces the score.
func SpeedMultiplier(speed float64, desertBus bool) float64 {
	if desertBus {
		if speed == 0 || speed == 1 {
			return 1
		}
		if speed > 1 {
			return 2 - speed
		}
	}
	switch {
	case speed == 0 || speed == 1:
		return 1
	case speed < 1:
		return 0
	case speed < 1.1:
		return -3.5*speed + 4.5
	case speed < 1.5:
		return 0.65
	case speed < 2:
		return 0.7*speed - 0.4
	default:
		return 1
	}
}

// MissMultiplier applies the tile-count-adjusted miss deduction. A clean run
// earns a 1.1x bonus; one grace miss is allowed per graceTiles tiles.
func MissMultiplier(tiles, misses int) float64 {
	if misses == 0 {
		return 1.1
	}
	tp := (deducStart + deducEnd) / 2
	tpDeduc := (startDeduc + endDeduc) / 2
	am := float64(misses - tiles/graceTiles)
	switch {
	case am <= 0:
		return 1
	case am <= deducStart:
		return 1 - startDeduc/100
	case am <= tp:
		k := math.Pow((am-deducStart)/(tp-deducStart), deducPower) * (tpDeduc - startDeduc) / 100
		return 1 - startDeduc/100 - k
	case am <= deducEnd:
		k := math.Pow((deducEnd-am)/(deducEnd-tp), deducPower) * (endDeduc - tpDeduc) / 100
		return 1 + k - endDeduc/100
	default:
		return 1 - endDeduc/100
	}
}

// ScoreV2 computes the score of a pass over a chart with the given base
// score. Misses are the early-double count; tiles exclude the double
// judgements on both ends.
func ScoreV2(p *models.Pass, baseScore float64, desertBus bool) float64 {
	j := p.Judgements
	xaccMtp := AccuracyMultiplier(Accuracy(j))
	speedMtp := SpeedMultiplier(p.Speed, desertBus)

	s := baseScore * xaccMtp * speedMtp
	if desertBus && s < 1 {
		s = 1
	}

	tiles := j.EarlySingle + j.EPerfect + j.Perfect + j.LPerfect + j.LateSingle
	s *= MissMultiplier(tiles, j.EarlyDouble)
	if p.IsNoHold {
		s *= 0.9
	}
	return s
}

// RankedScore sums the top clear scores with a 0.9^n decay. Scores must be
// sorted descending; at most top entries contribute.
func RankedScore(scores []float64, top int) float64 {
	if top > len(scores) {
		top = len(scores)
	}
	var total float64
	for n := 0; n < top; n++ {
		total += math.Pow(0.9, float64(n)) * scores[n]
	}
	return total
}
