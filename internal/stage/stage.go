package stage

import "strings"

// Stage identifies one phase of the fixed job lifecycle.
type Stage string

const (
	Stage1    Stage = "stage1"
	Stage2    Stage = "stage2"
	Stage3    Stage = "stage3"
	Stage4    Stage = "stage4"
	Completed Stage = "completed"
)

var ordered = []Stage{Stage1, Stage2, Stage3, Stage4, Completed}

var labels = map[Stage]string{
	Stage1:    "Initial Setup",
	Stage2:    "Customs & Documentation",
	Stage3:    "Clearance & Logistics",
	Stage4:    "Billing & Completion",
	Completed: "Completed",
}

// All returns every stage in lifecycle order.
func All() []Stage {
	cp := make([]Stage, len(ordered))
	copy(cp, ordered)
	return cp
}

// DataStages returns the stages that carry a data record (stage1..stage4).
func DataStages() []Stage {
	cp := make([]Stage, len(ordered)-1)
	copy(cp, ordered[:len(ordered)-1])
	return cp
}

// Parse converts a string into a known Stage.
func Parse(value string) (Stage, bool) {
	normalized := Stage(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := labels[normalized]; !ok {
		return "", false
	}
	return normalized, true
}

// Order returns the 1-based position of s in the lifecycle, or 0 when s is unknown.
func (s Stage) Order() int {
	for i, candidate := range ordered {
		if candidate == s {
			return i + 1
		}
	}
	return 0
}

// Next returns the immediate successor of s. Completed and unknown stages have none.
func (s Stage) Next() (Stage, bool) {
	order := s.Order()
	if order == 0 || order == len(ordered) {
		return "", false
	}
	return ordered[order], true
}

// IsSuccessorOf reports whether s is exactly one step after current.
func (s Stage) IsSuccessorOf(current Stage) bool {
	next, ok := current.Next()
	return ok && next == s
}

// HasData reports whether the stage owns a data record.
func (s Stage) HasData() bool {
	return s.Order() > 0 && s != Completed
}

// Terminal reports whether no further transitions exist from s.
func (s Stage) Terminal() bool {
	return s == Completed
}

// Label returns the human-facing stage name.
func (s Stage) Label() string {
	if label, ok := labels[s]; ok {
		return label
	}
	return string(s)
}

func (s Stage) String() string {
	return string(s)
}
