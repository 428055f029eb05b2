package contracts

// Pipeline Stage definitions (SSOT)
// Every log line, metric label and run report uses these constants.
//
// Flow per ticker:
//   acquire → transform → consolidate → derive → valuation → scoring → rules → quality → persist

// Stage represents a pipeline stage
type Stage string

const (
	// StageAcquire pulls raw tables from the upstream API
	// Location: internal/acquisition/
	StageAcquire Stage = "ACQUIRE"

	// StageTransform maps raw tables and reshapes them into quarterly fragments
	// Location: internal/schema/, internal/transform/
	StageTransform Stage = "TRANSFORM"

	// StageConsolidate left-joins fragments onto the base quarter axis
	// Location: internal/consolidate/
	StageConsolidate Stage = "CONSOLIDATE"

	// StageDerive computes derived columns and the EPS projection
	// Location: internal/derive/
	StageDerive Stage = "DERIVE"

	// StageValuation computes DCF, DDM, blend and gap
	// Location: internal/valuation/
	StageValuation Stage = "VALUATION"

	// StageScoring computes dividend safety and alpha pulse scores
	// Location: internal/scoring/
	StageScoring Stage = "SCORING"

	// StageRules evaluates the screening predicates
	// Location: internal/rules/
	StageRules Stage = "RULES"

	// StageQuality checks the finished fact table
	// Location: internal/quality/
	StageQuality Stage = "QUALITY"

	// StagePersist writes the fact table to every configured store
	// Location: internal/storage/
	StagePersist Stage = "PERSIST"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// Label returns the lower-case form used as a metric label
func (s Stage) Label() string {
	switch s {
	case StageAcquire:
		return "acquire"
	case StageTransform:
		return "transform"
	case StageConsolidate:
		return "consolidate"
	case StageDerive:
		return "derive"
	case StageValuation:
		return "valuation"
	case StageScoring:
		return "scoring"
	case StageRules:
		return "rules"
	case StageQuality:
		return "quality"
	case StagePersist:
		return "persist"
	default:
		return "unknown"
	}
}

// AllStages returns the per-ticker stages in execution order
func AllStages() []Stage {
	return []Stage{
		StageTransform,
		StageConsolidate,
		StageDerive,
		StageValuation,
		StageScoring,
		StageRules,
		StageQuality,
		StagePersist,
	}
}
