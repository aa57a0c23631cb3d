package model

import (
	"fmt"
	"time"
)

const (
	RecordTypeA    = "A"
	RecordTypeAAAA = "AAAA"
	RecordTypeMX   = "MX"
)

func IsValidRecordType(rt string) error {
	switch rt {
	case RecordTypeA, RecordTypeAAAA, RecordTypeMX:
		return nil
	}

	return fmt.Errorf("invalid record type")
}

// DNSBehavior is the per-run override for whether DNS lookups are injected
// into a check. The zero value defers to each domain's stored flag.
type DNSBehavior int

const (
	DNSDomainDefault DNSBehavior = iota
	DNSForceYes
	DNSForceNo
)

// LookupsDisabled is stored in the ip/mx fields when a check ran with DNS
// lookups turned off. It is distinct from the empty string a real lookup
// with no answers produces, so re-enabling DNS registers as a change.
const LookupsDisabled = "(lookups disabled)"

// TimeLayout is the canonical rendering of date fields, at whole-second
// precision in UTC, matching the store's DATETIME columns.
const TimeLayout = "2006-01-02 15:04:05"

// CanonicalRecord is one normalized snapshot of a domain's whois/DNS data.
// All list-valued fields are held in their deduplicated, sorted,
// comma-joined form so records compare with plain equality.
type CanonicalRecord struct {
	Registrar      string
	WhoisServer    string
	ReferralURL    string
	UpdatedDate    *time.Time
	CreationDate   *time.Time
	ExpirationDate *time.Time
	NameServers    string
	Status         string
	Emails         string
	DNSSEC         string
	Name           string
	Org            string
	Address        string
	City           string
	State          string
	Zipcode        string
	IP             string
	MX             string
}

// Datapoint names one tracked field: its key in raw lookup results and the
// English label written to the changed-field log.
type Datapoint struct {
	Key   string
	Label string
}

// Datapoints is the full set of tracked fields. The slice order is load
// bearing: it is the order fields are compared and the order changed-field
// rows are emitted.
var Datapoints = []Datapoint{
	{"registrar", "Registrar"},
	{"whois_server", "WHOIS Server"},
	{"referral_url", "Referral URL"},
	{"updated_date", "Updated Date"},
	{"creation_date", "Creation Date"},
	{"expiration_date", "Expiration Date"},
	{"name_servers", "Nameservers"},
	{"status", "Status"},
	{"emails", "Emails"},
	{"dnssec", "DNSSEC"},
	{"name", "Registrant Name"},
	{"org", "Registrant Organization"},
	{"address", "Registrant Address"},
	{"city", "Registrant City"},
	{"state", "Registrant State"},
	{"zipcode", "Registrant Zipcode"},
	{"ip", "IP Address"},
	{"mx", "MX Addresses"},
}

// Field returns the canonical string form of the named tracked field, which
// is what gets compared and logged. Dates render via TimeLayout, nil dates
// as the empty string.
func (r CanonicalRecord) Field(key string) string {
	switch key {
	case "registrar":
		return r.Registrar
	case "whois_server":
		return r.WhoisServer
	case "referral_url":
		return r.ReferralURL
	case "updated_date":
		return formatDate(r.UpdatedDate)
	case "creation_date":
		return formatDate(r.CreationDate)
	case "expiration_date":
		return formatDate(r.ExpirationDate)
	case "name_servers":
		return r.NameServers
	case "status":
		return r.Status
	case "emails":
		return r.Emails
	case "dnssec":
		return r.DNSSEC
	case "name":
		return r.Name
	case "org":
		return r.Org
	case "address":
		return r.Address
	case "city":
		return r.City
	case "state":
		return r.State
	case "zipcode":
		return r.Zipcode
	case "ip":
		return r.IP
	case "mx":
		return r.MX
	}
	return ""
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(TimeLayout)
}

// FieldChange is one field-level difference between two consecutive states.
type FieldChange struct {
	Label string `json:"label"`
	From  string `json:"from"`
	To    string `json:"to"`
}

type DomainResponse struct {
	Name         string `json:"name,omitempty"`
	ActiveChecks bool   `json:"activeChecks"`
	DoDNS        bool   `json:"doDns"`
}

type StateResponse struct {
	StateID   uint          `json:"stateId,omitempty"`
	CheckTime string        `json:"checkTime,omitempty"`
	Changes   []FieldChange `json:"changes,omitempty"`
}

type HistoryResponse struct {
	Name         string            `json:"name,omitempty"`
	ActiveChecks bool              `json:"activeChecks"`
	FirstChecked string            `json:"firstChecked,omitempty"`
	LastChecked  string            `json:"lastChecked,omitempty"`
	Current      map[string]string `json:"current,omitempty"`
	StateSince   string            `json:"stateSince,omitempty"`
	RawText      string            `json:"rawText,omitempty"`
	History      []StateResponse   `json:"history,omitempty"`
}

type ErrorResponse struct {
	Status  int         `json:"status,omitempty"`
	Message string      `json:"msg,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}
