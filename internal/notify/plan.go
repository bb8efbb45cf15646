package notify

import "github.com/mercer/studio-failsafe/internal/airmeta"

// Plan is the channel-branching decision for one dispatch, separated from
// I/O so the branch logic is testable without network calls.
type Plan struct {
	// BroadFallback is true when a human is on air but no direct address
	// could be resolved: the all-members group is the only way to reach
	// someone.
	BroadFallback bool

	// DirectContact is the resolved host address, empty when none.
	DirectContact string
}

// DecidePlan maps the resolved on-air context to channel invocations.
// An unattended broadcast has no individual to reach: no fallback, no
// direct contact.
func DecidePlan(actx *airmeta.Context) Plan {
	if actx == nil || !actx.Attended {
		return Plan{}
	}
	if actx.ContactAddress == "" {
		return Plan{BroadFallback: true}
	}
	return Plan{DirectContact: actx.ContactAddress}
}
