// Package alpha computes the twenty order-book factors from one snapshot
// row's parsed quantities plus lag state carried from the previous row in
// the same instrument stream. The kernel is a pure function of its
// arguments; lag bookkeeping is the caller's (internal/worker's)
// responsibility, not something hidden inside Compute itself.
package alpha

// Epsilon guards every division whose denominator can be zero.
const Epsilon = 1.0e-7

// FactorCount is the width of the computed factor vector.
const FactorCount = 20

// depthWeight holds the level weights 1, 1/2, 1/3, 1/4, 1/5 used by the
// weighted-depth factors. The third entry is a fixed 0.33333333 constant,
// matching the reference rather than 1.0/3.0.
var depthWeight = [5]float64{1, 0.5, 0.33333333, 0.25, 0.2}

// LagState carries the previous row's quantities for one instrument
// stream. Reset it (HasPrev = false) at file boundaries and whenever
// SecOfDay decreases.
type LagState struct {
	HasPrev bool

	PrevAp1, PrevBp1                  float64
	PrevSumBidVolumes, PrevSumAskVolumes float64
	PrevTradeTime                     int
}

// Reset clears HasPrev, as required at a file boundary or a time rewind.
func (l *LagState) Reset() {
	l.HasPrev = false
}

// Aggregates computes the cheap per-row quantities needed to update lag
// state, without touching tBidVol/tAskVol. Used on rows outside the emit
// window, where the full factor vector is never built.
func Aggregates(bp, bv, ap, av *[5]float64) (ap1, bp1, sumBidVolumes, sumAskVolumes float64) {
	ap1, bp1 = ap[0], bp[0]
	for i := 0; i < 5; i++ {
		sumBidVolumes += bv[i]
		sumAskVolumes += av[i]
	}
	return
}

// Compute fills out[0..19] with the twenty factors for one emitted row. It
// returns the same (ap1, bp1, sumBidVolumes, sumAskVolumes) quadruple that
// Aggregates would, so the caller can update lag state without
// recomputing them.
func Compute(out *[FactorCount]float64, bp, bv, ap, av *[5]float64, tBidVol, tAskVol float64, lag LagState) (ap1, bp1, sumBidVolumes, sumAskVolumes float64) {
	ap1, bp1 = ap[0], bp[0]
	bv1, av1 := bv[0], av[0]

	var sumBidWeightedPrice, sumAskWeightedPrice float64
	var weightedBidDepth, weightedAskDepth float64
	for i := 0; i < 5; i++ {
		sumBidVolumes += bv[i]
		sumAskVolumes += av[i]
		sumBidWeightedPrice += bp[i] * bv[i]
		sumAskWeightedPrice += ap[i] * av[i]
		weightedBidDepth += bv[i] * depthWeight[i]
		weightedAskDepth += av[i] * depthWeight[i]
	}

	spread := ap1 - bp1
	midPrice := 0.5 * (ap1 + bp1)
	depthDiff := sumBidVolumes - sumAskVolumes

	invMid := 1.0 / (midPrice + Epsilon)
	invBvAv := 1.0 / ((bv1 + av1) + Epsilon)
	invDepthSum := 1.0 / ((sumBidVolumes + sumAskVolumes) + Epsilon)
	invSumAsk := 1.0 / (sumAskVolumes + Epsilon)
	invSumBid := 1.0 / (sumBidVolumes + Epsilon)
	invTotalVol := 1.0 / ((tBidVol + tAskVol) + Epsilon)
	invWeightedDepthSum := 1.0 / ((weightedBidDepth + weightedAskDepth) + Epsilon)

	out[0] = spread
	out[1] = spread * invMid
	out[2] = midPrice
	out[3] = (bv1 - av1) * invBvAv
	out[4] = depthDiff * invDepthSum
	out[5] = sumBidVolumes
	out[6] = sumAskVolumes
	out[7] = depthDiff
	out[8] = sumBidVolumes * invSumAsk
	out[9] = (tBidVol - tAskVol) * invTotalVol
	out[10] = sumBidWeightedPrice * invSumBid
	out[11] = sumAskWeightedPrice * invSumAsk
	out[12] = (sumBidWeightedPrice + sumAskWeightedPrice) * invDepthSum
	out[13] = out[11] - out[10]
	out[14] = depthDiff / 5.0
	out[15] = (weightedBidDepth - weightedAskDepth) * invWeightedDepthSum

	if lag.HasPrev {
		out[16] = ap1 - lag.PrevAp1
		out[17] = 0.5 * ((ap1 + bp1) - (lag.PrevAp1 + lag.PrevBp1))
		prevInvSumAsk := 1.0 / (lag.PrevSumAskVolumes + Epsilon)
		out[18] = (sumBidVolumes * invSumAsk) - (lag.PrevSumBidVolumes * prevInvSumAsk)
	} else {
		out[16] = 0
		out[17] = 0
		out[18] = 0
	}
	out[19] = spread * invDepthSum

	return ap1, bp1, sumBidVolumes, sumAskVolumes
}
