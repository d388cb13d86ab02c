package draft

// Status is the build status of a draft.
type Status string

const (
	Idle     Status = "idle"
	Building Status = "building"
	Built    Status = "built"
	Failed   Status = "failed"
)

// validTransitions defines the draft state machine. Building -> Idle is a reset
// during an in-flight build; the late result is discarded.
var validTransitions = map[Status][]Status{
	Idle:     {Building},
	Building: {Built, Failed, Idle},
	Built:    {Building, Idle},
	Failed:   {Building, Idle},
}

// IsValid returns true if the status is a recognized draft status.
func (s Status) IsValid() bool {
	_, exists := validTransitions[s]
	return exists
}

// CanTransitionTo returns true if a transition from this status to the target is allowed.
func (s Status) CanTransitionTo(target Status) bool {
	for _, t := range validTransitions[s] {
		if t == target {
			return true
		}
	}
	return false
}

func (s Status) String() string { return string(s) }
