package domain

// PeriodSeconds is the width of one metrics bucket.
const PeriodSeconds int64 = 3_600

// MetricsBuckets is the length of the ring: 24 hourly slots.
const MetricsBuckets = 24

// TwaBucket accumulates activity for one hourly period. PeriodID is
// floor(ts/3600); a bucket whose PeriodID no longer matches the period that
// maps to its slot is stale and is cleared before the next write.
type TwaBucket struct {
	PeriodID          int64
	LockCount         int64
	SumLockAmount     int64
	SettlementCount   int64
	SumSettlementTime int64
}

// MetricsRing is a fixed 24-slot ring of hourly activity buckets.
// Storage stays O(1) regardless of activity volume.
type MetricsRing struct {
	Buckets [MetricsBuckets]TwaBucket
}

func periodOf(ts int64) int64 { return ts / PeriodSeconds }

func (r *MetricsRing) bucketFor(ts int64) *TwaBucket {
	period := periodOf(ts)
	b := &r.Buckets[period%MetricsBuckets]
	if b.PeriodID != period {
		*b = TwaBucket{PeriodID: period}
	}
	return b
}

// RecordLock adds one lock of the given amount to the bucket for ts.
func (r *MetricsRing) RecordLock(ts, amount int64) {
	b := r.bucketFor(ts)
	b.LockCount++
	b.SumLockAmount += amount
}

// RecordSettlement adds one settlement to the bucket for ts, measuring the
// lock-to-payout latency against lastLockAt. Negative latency (clock skew)
// clamps to zero.
func (r *MetricsRing) RecordSettlement(ts, lastLockAt int64) {
	latency := ts - lastLockAt
	if latency < 0 {
		latency = 0
	}
	b := r.bucketFor(ts)
	b.SettlementCount++
	b.SumSettlementTime += latency
}

// MetricsAggregate is the rolled-up view over the live buckets of the ring.
type MetricsAggregate struct {
	Periods           int64
	LockCount         int64
	SumLockAmount     int64
	SettlementCount   int64
	SumSettlementTime int64
	AvgLockAmount     int64
	AvgSettlementTime int64
}

// Aggregate sums every bucket whose period falls within the 24-period
// horizon ending at ts. Stale buckets from older periods are excluded.
// Averages are zero when the matching count is zero.
func (r *MetricsRing) Aggregate(ts int64) MetricsAggregate {
	current := periodOf(ts)
	oldest := current - int64(MetricsBuckets) + 1

	var agg MetricsAggregate
	for i := range r.Buckets {
		b := r.Buckets[i]
		if b.PeriodID < oldest || b.PeriodID > current {
			continue
		}
		agg.Periods++
		agg.LockCount += b.LockCount
		agg.SumLockAmount += b.SumLockAmount
		agg.SettlementCount += b.SettlementCount
		agg.SumSettlementTime += b.SumSettlementTime
	}
	if agg.LockCount > 0 {
		agg.AvgLockAmount = agg.SumLockAmount / agg.LockCount
	}
	if agg.SettlementCount > 0 {
		agg.AvgSettlementTime = agg.SumSettlementTime / agg.SettlementCount
	}
	return agg
}
