package usecase

// shouldApplySplits is the reconciliation guard. A derived split set may be
// written only when its bucket sum equals the upstream-recorded total for
// the row; otherwise the row is left untouched so a partial rebuild never
// overwrites a recorded total.
func shouldApplySplits(splitSum, recordedTotal int) bool {
	return recordedTotal > 0 && splitSum == recordedTotal
}
