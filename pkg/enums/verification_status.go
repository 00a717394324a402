package enums

// VerificationStatus maps to the verification_status check constraint.
type VerificationStatus string

const (
	VerificationStatusPending  VerificationStatus = "pending"
	VerificationStatusApproved VerificationStatus = "approved"
	VerificationStatusRejected VerificationStatus = "rejected"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationStatusPending,
	VerificationStatusApproved,
	VerificationStatusRejected,
}

func (v VerificationStatus) String() string { return string(v) }

func (v VerificationStatus) IsValid() bool { return oneOf(v, validVerificationStatuses) }

func ParseVerificationStatus(value string) (VerificationStatus, error) {
	return parse("verification status", value, validVerificationStatuses)
}

// ReviewDecision is the outcome an administrator records on a pending request.
type ReviewDecision string

const (
	ReviewDecisionApproved ReviewDecision = "approved"
	ReviewDecisionRejected ReviewDecision = "rejected"
)

var validReviewDecisions = []ReviewDecision{
	ReviewDecisionApproved,
	ReviewDecisionRejected,
}

func (d ReviewDecision) String() string { return string(d) }

func (d ReviewDecision) IsValid() bool { return oneOf(d, validReviewDecisions) }

func ParseReviewDecision(value string) (ReviewDecision, error) {
	return parse("review decision", value, validReviewDecisions)
}

// IsTerminal reports whether the status has no outbound transitions.
func (v VerificationStatus) IsTerminal() bool {
	return v == VerificationStatusApproved || v == VerificationStatusRejected
}

// Status returns the verification status a decision moves a request into.
func (d ReviewDecision) Status() VerificationStatus {
	return VerificationStatus(d)
}
