package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/whoiswatch/whoiswatch/pkg/model"
	"github.com/whoiswatch/whoiswatch/pkg/normalize"
	"github.com/whoiswatch/whoiswatch/pkg/resolver"
	"github.com/whoiswatch/whoiswatch/pkg/whois"
	"golang.org/x/net/idna"
)

func (b *backend) CheckDomain(ctx context.Context, name, cannedRawText string) (bool, error) {
	log := logrus.WithField("domain", name)
	log.Debug("running checks")

	doDNS, err := b.resolveDNSPolicy(log, name)
	if err != nil {
		return false, err
	}

	rawText := cannedRawText
	if rawText == "" {
		rawText, err = b.fetchWithRetry(ctx, log, name)
		if err != nil {
			return false, err
		}
	}
	if whois.IsCommFailure(rawText) {
		// Nothing gets stored, but the caller should not treat the skip as
		// "no changes": signal conservatively.
		log.Error("communication error while checking whois, not storing results")
		return true, nil
	}

	fields, err := b.whois.Parse(name, rawText)
	if err != nil {
		return false, err
	}

	rec, err := normalize.Record(fields)
	if err != nil {
		return false, fmt.Errorf("normalizing %s: %w", name, err)
	}

	if doDNS {
		if err := b.injectDNS(ctx, name, &rec); err != nil {
			return false, err
		}
	} else {
		rec.IP = model.LookupsDisabled
		rec.MX = model.LookupsDisabled
	}

	stored, changes, err := b.db.RecordCheck(name, rawText, rec, doDNS, b.now())
	if err != nil {
		return false, err
	}

	if !stored {
		log.Debug("no changes to report")
		return false, nil
	}
	if len(changes) == 0 {
		log.Info("initial state recorded")
	} else {
		log.Info("changes detected")
		for _, ch := range changes {
			log.Infof("%s: %s -> %s", ch.Label, ch.From, ch.To)
		}
	}
	return true, nil
}

func (b *backend) CheckAll(ctx context.Context) (bool, error) {
	domains, err := b.db.ListDomains()
	if err != nil {
		return false, err
	}

	haveChanges := false
	var domainErrs []error
	first := true
	for _, domain := range domains {
		if !domain.ActiveChecks {
			continue
		}
		if !first {
			logrus.Debugf("waiting %s before next domain", b.delayBetweenDomains)
			b.sleep(b.delayBetweenDomains)
		}
		first = false

		changed, err := b.CheckDomain(ctx, domain.Domain, "")
		if err != nil {
			if errors.Is(err, resolver.ErrLookup) {
				// Resolver trouble skips the domain without storing
				// anything; the rest of the batch still runs.
				logrus.WithField("domain", domain.Domain).WithError(err).Error("skipping domain after DNS failure")
				domainErrs = append(domainErrs, err)
				continue
			}
			return haveChanges, err
		}
		if changed {
			haveChanges = true
		}
	}

	return haveChanges, errors.Join(domainErrs...)
}

// resolveDNSPolicy decides whether this run injects DNS lookups for the
// domain, creating the tracking row on first observation.
func (b *backend) resolveDNSPolicy(log *logrus.Entry, name string) (bool, error) {
	domain, err := b.db.GetDomain(name)
	if err != nil {
		return false, err
	}

	if domain.Domain == "" {
		doDNS := b.dnsBehavior != model.DNSForceNo
		log.Info("adding domain to the database")
		if _, err := b.db.CreateDomain(name, doDNS); err != nil {
			return false, err
		}
		return doDNS, nil
	}

	switch b.dnsBehavior {
	case model.DNSForceYes:
		if !domain.DoDNS {
			log.Info("enabling DNS lookups")
		}
		return true, nil
	case model.DNSForceNo:
		if domain.DoDNS {
			log.Info("disabling DNS lookups")
		}
		return false, nil
	default:
		return domain.DoDNS, nil
	}
}

// fetchWithRetry attempts the whois lookup up to maxRetries times, pausing
// between attempts on transient communication failures. A still-failing
// final attempt comes back as raw text carrying the failure marker so the
// caller takes the same path as canned failure data.
func (b *backend) fetchWithRetry(ctx context.Context, log *logrus.Entry, name string) (string, error) {
	ascii, err := idna.ToASCII(name)
	if err != nil {
		return "", fmt.Errorf("converting %s to punycode: %w", name, err)
	}

	var rawText string
	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		rawText, err = b.whois.Lookup(ctx, ascii)
		if err != nil && !errors.Is(err, whois.ErrTransient) {
			return "", err
		}
		transient := err != nil || whois.IsCommFailure(rawText)
		if !transient {
			return rawText, nil
		}
		if attempt < b.maxRetries {
			log.Warnf("communication error, pausing %s to retry", b.delayBetweenDomains)
			b.sleep(b.delayBetweenDomains)
		}
	}

	if rawText == "" {
		rawText = whois.CommFailureText
	}
	return rawText, nil
}

func (b *backend) injectDNS(ctx context.Context, name string, rec *model.CanonicalRecord) error {
	var ips []string
	for _, rt := range []string{model.RecordTypeA, model.RecordTypeAAAA} {
		answers, err := b.resolver.Resolve(ctx, name, rt)
		if err != nil {
			return err
		}
		ips = append(ips, answers...)
	}
	rec.IP = normalize.SortedJoin(ips)

	mx, err := b.resolver.Resolve(ctx, name, model.RecordTypeMX)
	if err != nil {
		return err
	}
	rec.MX = normalize.SortedJoin(mx)

	return nil
}
