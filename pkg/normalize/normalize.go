// Package normalize turns the loosely-structured output of a whois parse
// into a flat canonical record whose fields compare with plain equality.
package normalize

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/whoiswatch/whoiswatch/pkg/model"
)

// ErrDateFormat marks a date value that is neither a parsed timestamp nor a
// YYYY-MM-DDTHH:MM:SS string. Unknown date shapes are never coerced; they
// abort the run so the comparison baseline stays trustworthy.
var ErrDateFormat = errors.New("unknown date format")

var (
	dateTRe     = regexp.MustCompile(`^(\d+)-(\d+)-(\d+)T(\d+):(\d+):(\d+)$`)
	statusURLRe = regexp.MustCompile(`^(.*?)( \(?(http\S+?)\)?)?$`)
)

// Record normalizes a raw parse into a CanonicalRecord. It is total over
// malformed input except for the date fields, which fail with ErrDateFormat.
// The ip/mx fields are left empty; DNS injection is a separate step owned by
// the orchestrator.
func Record(raw model.RawFields) (model.CanonicalRecord, error) {
	rec := model.CanonicalRecord{
		Registrar:   text(raw["registrar"]),
		WhoisServer: text(raw["whois_server"]),
		ReferralURL: text(raw["referral_url"]),
		DNSSEC:      text(raw["dnssec"]),
		Name:        text(raw["name"]),
		Org:         text(raw["org"]),
		Address:     text(raw["address"]),
		City:        text(raw["city"]),
		State:       text(raw["state"]),
		Zipcode:     text(raw["zipcode"]),
	}

	var err error
	if rec.UpdatedDate, err = reduceDates("updated_date", raw["updated_date"], latest); err != nil {
		return rec, err
	}
	if rec.CreationDate, err = reduceDates("creation_date", raw["creation_date"], earliest); err != nil {
		return rec, err
	}
	if rec.ExpirationDate, err = reduceDates("expiration_date", raw["expiration_date"], earliest); err != nil {
		return rec, err
	}

	rec.NameServers = nameServers(raw["name_servers"])
	rec.Status = statuses(raw["status"])
	rec.Emails = emails(raw["emails"])

	return rec, nil
}

// SortedJoin deduplicates and sorts values, then comma-joins them. It is the
// single serialization for every list-valued canonical field, so equality
// comparison is order-independent.
func SortedJoin(values []string) string {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	uniq := make([]string, 0, len(set))
	for v := range set {
		uniq = append(uniq, v)
	}
	sort.Strings(uniq)
	return strings.Join(uniq, ", ")
}

type reducer func(a, b time.Time) time.Time

func latest(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}

func earliest(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

// reduceDates resolves a scalar-or-list date value to a single UTC timestamp
// at whole-second precision. Zone-aware values are converted to UTC before
// the offset is dropped; zoneless strings are assumed already UTC.
func reduceDates(key string, v model.FieldValue, pick reducer) (*time.Time, error) {
	var dates []time.Time
	for _, item := range v.Items() {
		if t, ok := item.AsTime(); ok {
			dates = append(dates, t.UTC().Truncate(time.Second))
			continue
		}
		s, ok := item.AsString()
		if !ok {
			return nil, fmt.Errorf("%w for %s: nested list", ErrDateFormat, key)
		}
		if s == "" {
			continue
		}
		m := dateTRe.FindStringSubmatch(s)
		if m == nil {
			return nil, fmt.Errorf("%w for %s: %q", ErrDateFormat, key, s)
		}
		dates = append(dates, time.Date(
			atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3]),
			atoi(m[4]), atoi(m[5]), atoi(m[6]),
			0, time.UTC))
	}
	if len(dates) == 0 {
		return nil, nil
	}
	result := dates[0]
	for _, d := range dates[1:] {
		result = pick(result, d)
	}
	return &result, nil
}

func nameServers(v model.FieldValue) string {
	var servers []string
	for _, item := range v.Items() {
		servers = append(servers, strings.ToLower(text(item)))
	}
	if len(servers) == 0 {
		return ""
	}
	return SortedJoin(servers)
}

// statuses strips the optional trailing "(URL)" suffix registries append to
// status tokens, then deduplicates. Duplicates can appear both in the input
// and as post-strip collisions.
func statuses(v model.FieldValue) string {
	var tokens []string
	for _, item := range v.Items() {
		s := text(item)
		if m := statusURLRe.FindStringSubmatch(s); m != nil {
			s = m[1]
		}
		tokens = append(tokens, s)
	}
	if len(tokens) == 0 {
		return ""
	}
	return SortedJoin(tokens)
}

func emails(v model.FieldValue) string {
	if !v.IsList() {
		// Scalar emails pass through untouched
		return text(v)
	}
	var addrs []string
	for _, item := range v.Items() {
		addrs = append(addrs, text(item))
	}
	return SortedJoin(addrs)
}

// text flattens any value shape to a deterministic string, so pass-through
// fields never fail on an unexpected list or timestamp.
func text(v model.FieldValue) string {
	if s, ok := v.AsString(); ok {
		return s
	}
	if t, ok := v.AsTime(); ok {
		return t.UTC().Truncate(time.Second).Format(model.TimeLayout)
	}
	if v.IsList() {
		var parts []string
		for _, item := range v.Items() {
			parts = append(parts, text(item))
		}
		return SortedJoin(parts)
	}
	return ""
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
