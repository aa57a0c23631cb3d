package backend

import (
	"context"
	"time"

	"github.com/whoiswatch/whoiswatch/pkg/db"
	"github.com/whoiswatch/whoiswatch/pkg/model"
	"github.com/whoiswatch/whoiswatch/pkg/resolver"
	"github.com/whoiswatch/whoiswatch/pkg/whois"
)

type Backend interface {
	// CheckDomain runs one domain's check end to end. cannedRawText, when
	// non-empty, is used instead of a live whois call (handy for testing
	// without tripping registry rate limits). Reports whether a change was
	// detected since the previous state.
	CheckDomain(ctx context.Context, name, cannedRawText string) (bool, error)

	// CheckAll checks every domain with active checks enabled, in domain
	// name order, pausing the configured delay between domains.
	CheckAll(ctx context.Context) (bool, error)

	SetActive(name string, active bool) error
	Purge(name string) error
	ListDomains() ([]model.DomainResponse, error)
	GetHistory(name string) (model.HistoryResponse, error)

	StartCheckerDaemon(stopCh <-chan struct{})
}

type Options struct {
	DNSBehavior          model.DNSBehavior
	DelayBetweenDomains  time.Duration
	MaxRetries           int
	CheckIntervalSeconds int64
}

type backend struct {
	db       db.Database
	whois    whois.Client
	resolver resolver.Resolver

	dnsBehavior          model.DNSBehavior
	delayBetweenDomains  time.Duration
	maxRetries           int
	checkIntervalSeconds int64

	// Injected so tests can pin the clock and skip real delays
	now   func() time.Time
	sleep func(time.Duration)
}

func New(database db.Database, whoisClient whois.Client, res resolver.Resolver, opts Options) (Backend, error) {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}

	return &backend{
		db:                   database,
		whois:                whoisClient,
		resolver:             res,
		dnsBehavior:          opts.DNSBehavior,
		delayBetweenDomains:  opts.DelayBetweenDomains,
		maxRetries:           opts.MaxRetries,
		checkIntervalSeconds: opts.CheckIntervalSeconds,
		now:                  time.Now,
		sleep:                time.Sleep,
	}, nil
}
