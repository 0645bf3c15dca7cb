package domain

// UpgradeCheck is one read-only invariant probe run before an upgrade.
type UpgradeCheck struct {
	Name   string
	Passed bool
	Detail string
}

// UpgradeReport collects every probe result. An upgrade must refuse to
// proceed unless Safe is true.
type UpgradeReport struct {
	Checks    []UpgradeCheck
	Safe      bool
	CheckedAt int64
}

// BuildUpgradeReport derives the overall verdict from the probe results.
func BuildUpgradeReport(checks []UpgradeCheck, now int64) UpgradeReport {
	safe := true
	for _, c := range checks {
		if !c.Passed {
			safe = false
			break
		}
	}
	return UpgradeReport{Checks: checks, Safe: safe, CheckedAt: now}
}
