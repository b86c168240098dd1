package billing

// Plan is a static, code-defined subscription tier. Plans are not persisted;
// the registry below is the single source of truth and is compiled into the
// limit checker. MonthlyCallQuota of UnlimitedQuota means no cap.
type Plan struct {
	ID               string
	Name             string
	MonthlyCallQuota int64
	Capabilities     []string
}

// UnlimitedQuota is the sentinel for plans without a monthly cap
const UnlimitedQuota int64 = -1

// Billable capability names, also used as usage-event endpoint labels
const (
	CapabilityAnalyze = "analyze"
	CapabilityRedact  = "redact"
	CapabilityReport  = "report"
	CapabilityDrill   = "drill"
	CapabilityAsk     = "ask"
)

var (
	// PlanFree is the default tier every tenant starts on
	PlanFree = Plan{
		ID:               "free",
		Name:             "Free",
		MonthlyCallQuota: 100,
		Capabilities:     []string{CapabilityAnalyze, CapabilityRedact},
	}

	// PlanStarter adds report generation and drill simulation
	PlanStarter = Plan{
		ID:               "starter",
		Name:             "Starter",
		MonthlyCallQuota: 500,
		Capabilities:     []string{CapabilityAnalyze, CapabilityRedact, CapabilityReport, CapabilityDrill},
	}

	// PlanProfessional unlocks document Q&A
	PlanProfessional = Plan{
		ID:               "professional",
		Name:             "Professional",
		MonthlyCallQuota: 5000,
		Capabilities:     []string{CapabilityAnalyze, CapabilityRedact, CapabilityReport, CapabilityDrill, CapabilityAsk},
	}

	// PlanEnterprise has no call cap
	PlanEnterprise = Plan{
		ID:               "enterprise",
		Name:             "Enterprise",
		MonthlyCallQuota: UnlimitedQuota,
		Capabilities:     []string{CapabilityAnalyze, CapabilityRedact, CapabilityReport, CapabilityDrill, CapabilityAsk},
	}

	plans = map[string]Plan{
		PlanFree.ID:         PlanFree,
		PlanStarter.ID:      PlanStarter,
		PlanProfessional.ID: PlanProfessional,
		PlanEnterprise.ID:   PlanEnterprise,
	}
)

// PlanByID looks up a plan in the registry
func PlanByID(id string) (Plan, bool) {
	p, ok := plans[id]
	return p, ok
}

// AllPlans returns every registered plan
func AllPlans() []Plan {
	return []Plan{PlanFree, PlanStarter, PlanProfessional, PlanEnterprise}
}

// IsUnlimited reports whether the plan has no monthly cap
func (p Plan) IsUnlimited() bool {
	return p.MonthlyCallQuota == UnlimitedQuota
}

// Allows reports whether the plan includes the given capability
func (p Plan) Allows(capability string) bool {
	for _, c := range p.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}

// Entitlement is the result of checking current-period usage against a plan.
// Remaining must be strictly positive for the next call to be allowed:
// a tenant exactly at quota is blocked.
type Entitlement struct {
	PlanID       string  `json:"plan"`
	Allowed      bool    `json:"allowed"`
	Unlimited    bool    `json:"unlimited"`
	Used         int64   `json:"used"`
	Limit        int64   `json:"limit"`
	Remaining    int64   `json:"remaining"`
	PercentUsed  float64 `json:"percent_used"`
	FailedOpen   bool    `json:"-"` // the usage query failed and the check allowed the call
}

// CheckUsage evaluates the entitlement for the given current-period usage
func (p Plan) CheckUsage(used int64) Entitlement {
	e := Entitlement{
		PlanID:    p.ID,
		Used:      used,
		Limit:     p.MonthlyCallQuota,
		Unlimited: p.IsUnlimited(),
	}

	if p.IsUnlimited() {
		e.Allowed = true
		return e
	}

	e.Remaining = p.MonthlyCallQuota - used
	if e.Remaining < 0 {
		e.Remaining = 0
	}
	if p.MonthlyCallQuota > 0 {
		e.PercentUsed = float64(used) / float64(p.MonthlyCallQuota) * 100
	}
	e.Allowed = e.Remaining > 0
	return e
}
