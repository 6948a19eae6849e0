package types

// Verdict is the aggregate activity-suitability classification for a
// forecast result.
type Verdict string

const (
	VerdictFavorable   Verdict = "favorable"
	VerdictCaution     Verdict = "caution"
	VerdictUnfavorable Verdict = "unfavorable"
)

// Recommendation is the activity-level output of the classifier. Derived per
// request, never persisted.
type Recommendation struct {
	Verdict Verdict `json:"verdict"`
	Message string  `json:"message"`
}

// KnownActivities is the set of activity labels accepted at the validation
// boundary. The classifier itself is activity-agnostic; the label is used
// only for message phrasing.
var KnownActivities = map[string]struct{}{
	"parade":   {},
	"hiking":   {},
	"camping":  {},
	"beach":    {},
	"picnic":   {},
	"festival": {},
	"wedding":  {},
	"sports":   {},
}

// IsKnownActivity reports whether the label belongs to the accepted set.
func IsKnownActivity(activity string) bool {
	_, ok := KnownActivities[activity]
	return ok
}
