package providers

import "context"

// OutcomeStatus classifies the result of a campaign dispatch attempt.
type OutcomeStatus string

const (
	// OutcomeSuccess: the prospect was added to the list.
	OutcomeSuccess OutcomeStatus = "success"
	// OutcomeDuplicate: the remote list already holds this prospect.
	OutcomeDuplicate OutcomeStatus = "duplicate"
	// OutcomeRejected: the remote system will never accept this prospect
	// (malformed or bounced address). Retrying cannot help.
	OutcomeRejected OutcomeStatus = "rejected"
	// OutcomeSkipped: no list is configured for this campaign. Treated as
	// terminal so an unconfigured feature does not retry forever.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeTransient: network failure, 5xx, rate limit or auth trouble.
	// The only status eligible for retry on the next trigger.
	OutcomeTransient OutcomeStatus = "transient"
)

// Outcome is the uniform dispatch result consumed by the gating logic.
type Outcome struct {
	Status OutcomeStatus
	Reason string
	Err    error
}

// Terminal reports whether the dispatch gate should be stamped. Everything
// except a transient failure closes the loop.
func (o Outcome) Terminal() bool {
	return o.Status != OutcomeTransient
}

// Prospect is the contact handed to a campaign list.
type Prospect struct {
	Email     string
	FirstName string
	LastName  string
	// Fields carries campaign context (recovery_url, cart_value, ...).
	Fields map[string]interface{}
}

// CampaignProvider delivers prospects to external campaign lists.
type CampaignProvider interface {
	// AddToList pushes the prospect onto the given list. An empty listID
	// yields OutcomeSkipped, never an error.
	AddToList(ctx context.Context, listID string, prospect Prospect) Outcome
}
