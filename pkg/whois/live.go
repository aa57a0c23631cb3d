package whois

import (
	"context"
	"fmt"
	"time"

	likexianwhois "github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/whoiswatch/whoiswatch/pkg/model"
)

type liveClient struct {
	client *likexianwhois.Client
}

// NewClient returns a Client backed by live registry queries.
func NewClient(timeout time.Duration) Client {
	c := likexianwhois.NewClient()
	c.SetTimeout(timeout)
	return &liveClient{
		client: c,
	}
}

func (c *liveClient) Lookup(_ context.Context, domain string) (string, error) {
	rawText, err := c.client.Whois(domain)
	if err != nil {
		// Network-level failures are retryable
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	return rawText, nil
}

func (c *liveClient) Parse(domain, rawText string) (model.RawFields, error) {
	info, err := whoisparser.Parse(rawText)
	if err != nil {
		return nil, fmt.Errorf("%w for %s: %v", ErrParse, domain, err)
	}

	raw := model.RawFields{}

	if d := info.Domain; d != nil {
		setString(raw, "whois_server", d.WhoisServer)
		if len(d.NameServers) > 0 {
			raw["name_servers"] = model.StringListValue(d.NameServers...)
		}
		if len(d.Status) > 0 {
			raw["status"] = model.StringListValue(d.Status...)
		}
		if d.DNSSec {
			raw["dnssec"] = model.StringValue("signedDelegation")
		} else {
			raw["dnssec"] = model.StringValue("unsigned")
		}
		setDate(raw, "updated_date", d.UpdatedDateInTime, d.UpdatedDate)
		setDate(raw, "creation_date", d.CreatedDateInTime, d.CreatedDate)
		setDate(raw, "expiration_date", d.ExpirationDateInTime, d.ExpirationDate)
	}

	if r := info.Registrar; r != nil {
		setString(raw, "registrar", r.Name)
		setString(raw, "referral_url", r.ReferralURL)
	}

	if reg := info.Registrant; reg != nil {
		setString(raw, "name", reg.Name)
		setString(raw, "org", reg.Organization)
		setString(raw, "address", reg.Street)
		setString(raw, "city", reg.City)
		setString(raw, "state", reg.Province)
		setString(raw, "zipcode", reg.PostalCode)
	}

	var emails []string
	for _, contact := range []*whoisparser.Contact{
		info.Registrant, info.Administrative, info.Technical, info.Billing,
	} {
		if contact != nil && contact.Email != "" {
			emails = append(emails, contact.Email)
		}
	}
	if len(emails) > 0 {
		raw["emails"] = model.StringListValue(emails...)
	}

	return raw, nil
}

func setString(raw model.RawFields, key, value string) {
	if value != "" {
		raw[key] = model.StringValue(value)
	}
}

// setDate prefers the parser's typed timestamp; otherwise the raw string is
// handed to the normalizer, which owns deciding whether the shape is fatal.
func setDate(raw model.RawFields, key string, t *time.Time, s string) {
	if t != nil {
		raw[key] = model.TimeValue(*t)
	} else if s != "" {
		raw[key] = model.StringValue(s)
	}
}
