package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanByID(t *testing.T) {
	p, ok := PlanByID("starter")
	assert.True(t, ok)
	assert.Equal(t, int64(500), p.MonthlyCallQuota)

	_, ok = PlanByID("platinum")
	assert.False(t, ok)
}

func TestPlanCapabilities(t *testing.T) {
	assert.True(t, PlanFree.Allows(CapabilityAnalyze))
	assert.False(t, PlanFree.Allows(CapabilityAsk))
	assert.True(t, PlanProfessional.Allows(CapabilityAsk))
	assert.True(t, PlanEnterprise.Allows(CapabilityDrill))
}

func TestCheckUsageOneBelowQuota(t *testing.T) {
	e := PlanStarter.CheckUsage(499)

	assert.True(t, e.Allowed)
	assert.Equal(t, int64(1), e.Remaining)
	assert.Equal(t, int64(499), e.Used)
	assert.Equal(t, int64(500), e.Limit)
}

func TestCheckUsageExactlyAtQuotaBlocks(t *testing.T) {
	// Remaining must be strictly positive to allow the next call
	e := PlanStarter.CheckUsage(500)

	assert.False(t, e.Allowed)
	assert.Equal(t, int64(0), e.Remaining)
	assert.InDelta(t, 100.0, e.PercentUsed, 0.001)
}

func TestCheckUsageOverQuota(t *testing.T) {
	e := PlanFree.CheckUsage(250)

	assert.False(t, e.Allowed)
	assert.Equal(t, int64(0), e.Remaining)
}

func TestCheckUsageUnlimitedAlwaysAllows(t *testing.T) {
	for _, used := range []int64{0, 1, 5000, 1_000_000} {
		e := PlanEnterprise.CheckUsage(used)
		assert.True(t, e.Allowed, "enterprise must allow at %d calls", used)
		assert.True(t, e.Unlimited)
	}
}
