package synthesis

// ScoreWeights weights the quality score components. They are normalized by
// their sum when the total is computed.
type ScoreWeights struct {
	Completeness float64
	CodeQuality  float64
	Clarity      float64
	Consensus    float64
}

func (w ScoreWeights) sum() float64 {
	return w.Completeness + w.CodeQuality + w.Clarity + w.Consensus
}

// Config holds the tunable constants of a synthesis run. The zero value is
// not usable; start from DefaultConfig.
type Config struct {
	// TimelineWeights weights each role's estimate in the timeline average.
	TimelineWeights map[Role]float64

	// PriorityWeights weights each role's priority vote.
	PriorityWeights map[Role]float64

	// DefaultRoleWeight applies to roles absent from a weight table.
	DefaultRoleWeight float64

	// TimelineBuffer multiplies the weighted timeline average.
	TimelineBuffer float64

	// ScoreWeights weights the quality score components.
	ScoreWeights ScoreWeights

	// QualityThreshold is the total score at which the loop stops.
	QualityThreshold float64

	// RetryBudget is the number of enhancement passes allowed.
	RetryBudget int

	// MinCodeBlocks is the minimum count of non-placeholder code blocks a
	// complete document carries.
	MinCodeBlocks int

	// ExpectedRoles lists the contributors a run waits for. Consensus is
	// measured against it and missing roles are reported.
	ExpectedRoles []Role

	// RolePriority breaks ties in the default resolution policy. Earlier
	// roles win.
	RolePriority []Role

	// ParseWorkers bounds concurrent contributor parsing. Zero means one
	// worker per contributor.
	ParseWorkers int
}

// DefaultConfig returns the stock weights and thresholds.
func DefaultConfig() Config {
	return Config{
		TimelineWeights: map[Role]float64{
			RoleProjectManager: 0.40,
			RoleArchitect:      0.35,
			RoleProductOwner:   0.15,
			RoleQA:             0.10,
		},
		PriorityWeights: map[Role]float64{
			RoleProductOwner:   0.40,
			RoleProjectManager: 0.35,
			RoleArchitect:      0.15,
			RoleSecurity:       0.10,
		},
		DefaultRoleWeight: 0.05,
		TimelineBuffer:    1.2,
		ScoreWeights: ScoreWeights{
			Completeness: 0.4,
			CodeQuality:  0.3,
			Clarity:      0.2,
			Consensus:    0.1,
		},
		QualityThreshold: 0.7,
		RetryBudget:      2,
		MinCodeBlocks:    3,
		ExpectedRoles: []Role{
			RoleProductOwner,
			RoleProjectManager,
			RoleArchitect,
			RoleSecurity,
			RoleQA,
			RoleUXDesigner,
		},
		RolePriority: []Role{
			RoleSecurity,
			RoleArchitect,
			RoleProjectManager,
			RoleProductOwner,
			RoleQA,
			RoleUXDesigner,
		},
	}
}

// weight returns the configured weight for role in table.
func (c Config) weight(table map[Role]float64, role Role) float64 {
	if w, ok := table[role]; ok {
		return w
	}
	return c.DefaultRoleWeight
}

// rolePriority returns the tie-break rank of role; lower wins.
func (c Config) rolePriority(role Role) int {
	for i, r := range c.RolePriority {
		if r == role {
			return i
		}
	}
	return len(c.RolePriority)
}

// expects reports whether role is one of the expected contributors.
func (c Config) expects(role Role) bool {
	for _, r := range c.ExpectedRoles {
		if r == role {
			return true
		}
	}
	return false
}
