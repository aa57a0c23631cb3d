// Package whois is the registration-data transport: raw lookups plus a
// best-effort structured parse of the response.
package whois

import (
	"context"
	"errors"
	"strings"

	"github.com/whoiswatch/whoiswatch/pkg/model"
)

// ErrTransient marks a communication-level lookup failure worth retrying,
// as opposed to a response that arrived but cannot be parsed.
var ErrTransient = errors.New("whois: transient communication error")

// ErrParse marks a response the parser cannot structure. Parse failures are
// fatal to a run: they indicate a format/library problem, not a per-domain
// hiccup, and silently skipping them would corrupt the history baseline.
var ErrParse = errors.New("whois: cannot parse response")

// CommFailureText is the marker some transports embed in the raw text on a
// failed socket conversation. Checking the text keeps canned lookups (from a
// file) behaving exactly like live ones.
const CommFailureText = "Socket not responding"

// IsCommFailure reports whether rawText is a communication failure rather
// than a real registry response.
func IsCommFailure(rawText string) bool {
	return strings.Contains(rawText, CommFailureText)
}

type Client interface {
	// Lookup fetches the raw registry text for an ASCII (punycode) domain.
	Lookup(ctx context.Context, domain string) (string, error)

	// Parse structures rawText into loosely-typed fields for the normalizer.
	Parse(domain, rawText string) (model.RawFields, error)
}
