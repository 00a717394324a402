package documents

import "time"

// LinkState tells the caller whether a document can be displayed.
type LinkState string

const (
	LinkReady       LinkState = "ready"
	LinkPending     LinkState = "pending"
	LinkUnavailable LinkState = "unavailable"
)

// Link is a displayable document location.
type Link struct {
	State     LinkState  `json:"state"`
	URL       string     `json:"url,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func pendingLink() Link     { return Link{State: LinkPending} }
func unavailableLink() Link { return Link{State: LinkUnavailable} }
