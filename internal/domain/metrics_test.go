package domain

import "testing"

func TestMetricsRingAggregatesCurrentHorizon(t *testing.T) {
	var ring MetricsRing
	base := int64(100) * PeriodSeconds
	ring.RecordLock(base+10, 1_000)
	ring.RecordLock(base+20, 3_000)
	ring.RecordSettlement(base+500, base+10)

	agg := ring.Aggregate(base + 600)
	if agg.LockCount != 2 { t.Fatalf("expected 2 locks, got %d", agg.LockCount) }
	if agg.SumLockAmount != 4_000 { t.Fatalf("expected sum 4000, got %d", agg.SumLockAmount) }
	if agg.AvgLockAmount != 2_000 { t.Fatalf("expected avg 2000, got %d", agg.AvgLockAmount) }
	if agg.SettlementCount != 1 { t.Fatalf("expected 1 settlement, got %d", agg.SettlementCount) }
	if agg.AvgSettlementTime != 490 { t.Fatalf("expected settlement time 490, got %d", agg.AvgSettlementTime) }
}

func TestMetricsRingExcludesStaleBuckets(t *testing.T) {
	var ring MetricsRing
	old := int64(100) * PeriodSeconds
	ring.RecordLock(old, 500)

	// 30 periods later the old bucket's slot still holds its data, but it
	// falls outside the 24-period horizon.
	later := old + 30*PeriodSeconds
	agg := ring.Aggregate(later)
	if agg.LockCount != 0 { t.Fatalf("stale bucket must be excluded, got %d locks", agg.LockCount) }
	if agg.Periods != 0 { t.Fatalf("expected no live periods, got %d", agg.Periods) }
}

func TestMetricsRingStaleSlotOverwrittenOnWrite(t *testing.T) {
	var ring MetricsRing
	old := int64(100) * PeriodSeconds
	ring.RecordLock(old, 500)

	// Same slot, 24 periods later: the write must reset the bucket.
	reuse := old + MetricsBuckets*PeriodSeconds
	ring.RecordLock(reuse, 700)
	agg := ring.Aggregate(reuse)
	if agg.LockCount != 1 { t.Fatalf("expected 1 lock after overwrite, got %d", agg.LockCount) }
	if agg.SumLockAmount != 700 { t.Fatalf("expected only the new amount, got %d", agg.SumLockAmount) }
}

func TestMetricsRingZeroCountsYieldZeroAverages(t *testing.T) {
	var ring MetricsRing
	agg := ring.Aggregate(50 * PeriodSeconds)
	if agg.AvgLockAmount != 0 || agg.AvgSettlementTime != 0 {
		t.Fatalf("empty ring must average to zero, got %d/%d", agg.AvgLockAmount, agg.AvgSettlementTime)
	}
}

func TestMetricsRingClampsNegativeLatency(t *testing.T) {
	var ring MetricsRing
	ts := int64(200) * PeriodSeconds
	ring.RecordSettlement(ts, ts+500)
	agg := ring.Aggregate(ts)
	if agg.SumSettlementTime != 0 { t.Fatalf("negative latency must clamp to zero, got %d", agg.SumSettlementTime) }
}
