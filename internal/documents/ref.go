package documents

import (
	"net/url"
	"strings"
)

// Kind distinguishes the two shapes a stored document reference can take.
type Kind int

const (
	// KindNone is a blank reference: nothing uploaded yet.
	KindNone Kind = iota
	// KindURL is an absolute http(s) link kept from older rows.
	KindURL
	// KindStoragePath is an object path inside the documents bucket.
	KindStoragePath
)

func (k Kind) String() string {
	switch k {
	case KindURL:
		return "url"
	case KindStoragePath:
		return "storage_path"
	default:
		return "none"
	}
}

// Ref is a parsed document reference.
type Ref struct {
	Kind  Kind
	Value string
}

// ParseRef classifies a raw document reference.
func ParseRef(raw string) Ref {
	value := strings.TrimSpace(raw)
	if value == "" {
		return Ref{Kind: KindNone}
	}
	if u, err := url.Parse(value); err == nil && u.Host != "" && (u.Scheme == "http" || u.Scheme == "https") {
		return Ref{Kind: KindURL, Value: value}
	}
	return Ref{Kind: KindStoragePath, Value: strings.TrimLeft(value, "/")}
}

// String returns the reference in its stored form.
func (r Ref) String() string {
	return r.Value
}
