package thresholds

// Phase is a batch's growth stage derived from its age. The raw (possibly
// negative) age is used here so a not-yet-hatched batch reads as pending.
type Phase string

const (
	PhasePending  Phase = "pending"  // hatch date still in the future
	PhaseStarter  Phase = "starter"  // 0-7 days
	PhaseGrower   Phase = "grower"   // 8-21 days
	PhaseFinisher Phase = "finisher" // 22-35 days
	PhaseReady    Phase = "ready"    // past 35 days, harvest window
)

// GrowthPhase maps an age in days to the batch's growth stage.
func GrowthPhase(ageInDays int) Phase {
	switch {
	case ageInDays < 0:
		return PhasePending
	case ageInDays < 7:
		return PhaseStarter
	case ageInDays < 21:
		return PhaseGrower
	case ageInDays < 35:
		return PhaseFinisher
	default:
		return PhaseReady
	}
}
