package models

// OutcomeKind discriminates the variants of an ExtractionOutcome.
type OutcomeKind string

const (
	// OutcomeDrafts means extraction produced one or more task drafts.
	OutcomeDrafts OutcomeKind = "drafts"
	// OutcomeClarification means the oracle judged the input insufficient
	// and supplied a follow-up question instead of drafts.
	OutcomeClarification OutcomeKind = "clarification"
)

// ExtractionOutcome is the tagged result of an extraction. Exactly one case
// is active, selected by Kind. Hard failures never appear here: the
// orchestrator converts them to a heuristic Drafts outcome before returning.
type ExtractionOutcome struct {
	Kind     OutcomeKind
	Drafts   []TaskDraft
	Summary  string
	Question string
	// Fallback marks a Drafts outcome produced by the deterministic
	// heuristic path rather than the oracle.
	Fallback bool
}

// DraftsOutcome builds a Drafts outcome.
func DraftsOutcome(drafts []TaskDraft, summary string) ExtractionOutcome {
	return ExtractionOutcome{Kind: OutcomeDrafts, Drafts: drafts, Summary: summary}
}

// FallbackOutcome builds a Drafts outcome from the heuristic path.
func FallbackOutcome(drafts []TaskDraft) ExtractionOutcome {
	return ExtractionOutcome{Kind: OutcomeDrafts, Drafts: drafts, Fallback: true}
}

// ClarificationOutcome builds a ClarificationNeeded outcome carrying the
// oracle's literal question text.
func ClarificationOutcome(question string) ExtractionOutcome {
	return ExtractionOutcome{Kind: OutcomeClarification, Question: question}
}
