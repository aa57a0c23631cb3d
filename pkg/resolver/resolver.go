// Package resolver is the DNS transport: A/AAAA/MX answer sets for a domain.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/whoiswatch/whoiswatch/pkg/model"
)

// ErrLookup marks a resolver failure other than "no answer". No-answer and
// NXDOMAIN results are not errors; they yield an empty set.
var ErrLookup = errors.New("dns lookup failed")

type Resolver interface {
	// Resolve returns the answer set for one record type (A, AAAA or MX).
	// MX answers come back as "<preference>/<exchange>" tokens with the
	// exchange's trailing dot removed.
	Resolve(ctx context.Context, domain, recordType string) ([]string, error)
}

type liveResolver struct {
	client  *dns.Client
	servers []string
}

// New returns a Resolver that queries the system's configured nameservers.
func New() (Resolver, error) {
	conf, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("reading resolver config: %w", err)
	}

	servers := make([]string, 0, len(conf.Servers))
	for _, s := range conf.Servers {
		servers = append(servers, fmt.Sprintf("%s:%s", s, conf.Port))
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no nameservers configured")
	}

	return &liveResolver{
		client: &dns.Client{
			Timeout: 10 * time.Second,
		},
		servers: servers,
	}, nil
}

func (r *liveResolver) Resolve(ctx context.Context, domain, recordType string) ([]string, error) {
	if err := model.IsValidRecordType(recordType); err != nil {
		return nil, err
	}

	var qtype uint16
	switch recordType {
	case model.RecordTypeA:
		qtype = dns.TypeA
	case model.RecordTypeAAAA:
		qtype = dns.TypeAAAA
	case model.RecordTypeMX:
		qtype = dns.TypeMX
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), qtype)
	m.RecursionDesired = true

	var lastErr error
	for _, server := range r.servers {
		resp, _, err := r.client.ExchangeContext(ctx, m, server)
		if err != nil {
			lastErr = err
			continue
		}
		switch resp.Rcode {
		case dns.RcodeSuccess, dns.RcodeNameError:
			return answers(resp), nil
		default:
			lastErr = fmt.Errorf("server %s returned %s", server, dns.RcodeToString[resp.Rcode])
		}
	}

	return nil, fmt.Errorf("%w for %s %s: %v", ErrLookup, domain, recordType, lastErr)
}

func answers(resp *dns.Msg) []string {
	var out []string
	for _, rr := range resp.Answer {
		switch rr := rr.(type) {
		case *dns.A:
			out = append(out, rr.A.String())
		case *dns.AAAA:
			out = append(out, rr.AAAA.String())
		case *dns.MX:
			out = append(out, fmt.Sprintf("%d/%s", rr.Preference, strings.TrimSuffix(rr.Mx, ".")))
		}
	}
	return out
}
