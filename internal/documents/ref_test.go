package documents

import "testing"

func TestParseRef(t *testing.T) {
	tests := []struct {
		raw   string
		kind  Kind
		value string
	}{
		{"https://cdn.example.com/a.pdf", KindURL, "https://cdn.example.com/a.pdf"},
		{" http://x/y.pdf ", KindURL, "http://x/y.pdf"},
		{"sellerid/123.png", KindStoragePath, "sellerid/123.png"},
		{"/sellerid/123.png", KindStoragePath, "sellerid/123.png"},
		{"ftp://host/file", KindStoragePath, "ftp://host/file"},
		{"https:/missing-host", KindStoragePath, "https:/missing-host"},
		{"", KindNone, ""},
	}
	for _, tt := range tests {
		got := ParseRef(tt.raw)
		if got.Kind != tt.kind || got.Value != tt.value {
			t.Fatalf("ParseRef(%q) = %v %q, want %v %q", tt.raw, got.Kind, got.Value, tt.kind, tt.value)
		}
	}
}
