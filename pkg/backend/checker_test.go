package backend

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/whoiswatch/whoiswatch/pkg/db"
	"github.com/whoiswatch/whoiswatch/pkg/model"
	"github.com/whoiswatch/whoiswatch/pkg/resolver"
	"github.com/whoiswatch/whoiswatch/pkg/whois"
)

type fakeWhois struct {
	rawText   string
	lookupErr error
	lookups   []string

	parseErr error
}

func (f *fakeWhois) Lookup(_ context.Context, domain string) (string, error) {
	f.lookups = append(f.lookups, domain)
	return f.rawText, f.lookupErr
}

// Parse hands back a registrar derived from the raw text so tests can tell
// one response apart from another without real whois data.
func (f *fakeWhois) Parse(_, rawText string) (model.RawFields, error) {
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	return model.RawFields{
		"registrar": model.StringValue("Registrar of " + rawText),
	}, nil
}

type fakeResolver struct {
	answers map[string][]string
	err     error
	queries []string
}

func (f *fakeResolver) Resolve(_ context.Context, domain, recordType string) ([]string, error) {
	f.queries = append(f.queries, domain+"/"+recordType)
	if f.err != nil {
		return nil, f.err
	}
	return f.answers[recordType], nil
}

func newTestBackend(t *testing.T, client whois.Client, res resolver.Resolver, opts Options) (*backend, db.Database) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := db.New(context.Background(), "sqlite", dsn, nil)
	require.NoError(t, err)

	back, err := New(database, client, res, opts)
	require.NoError(t, err)

	b := back.(*backend)
	// Each call moves the clock forward so repeated checks never collide on
	// the (domain, check_time) unique index.
	calls := 0
	b.now = func() time.Time {
		calls++
		return time.Date(2025, 2, 1, 12, 0, 0, 0, time.UTC).Add(time.Duration(calls) * time.Minute)
	}
	b.sleep = func(time.Duration) {}
	return b, database
}

func TestCheckDomainFirstObservation(t *testing.T) {
	client := &fakeWhois{rawText: "registry response"}
	res := &fakeResolver{answers: map[string][]string{
		model.RecordTypeA:  {"192.0.2.10"},
		model.RecordTypeMX: {"10/mail.example.com"},
	}}
	b, database := newTestBackend(t, client, res, Options{MaxRetries: 3})

	changed, err := b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"example.com"}, client.lookups)

	state, err := database.GetCurrentState("example.com")
	require.NoError(t, err)
	require.NotNil(t, state)
	rec := state.Canonical()
	assert.Equal(t, "Registrar of registry response", rec.Registrar)
	assert.Equal(t, "192.0.2.10", rec.IP)
	assert.Equal(t, "10/mail.example.com", rec.MX)
}

func TestCheckDomainNoChangeSecondRun(t *testing.T) {
	client := &fakeWhois{rawText: "registry response"}
	res := &fakeResolver{}
	b, _ := newTestBackend(t, client, res, Options{MaxRetries: 3})

	changed, err := b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestCheckDomainCannedData(t *testing.T) {
	client := &fakeWhois{}
	b, database := newTestBackend(t, client, &fakeResolver{}, Options{
		DNSBehavior: model.DNSForceNo,
		MaxRetries:  3,
	})

	changed, err := b.CheckDomain(context.Background(), "example.com", "canned response")
	require.NoError(t, err)
	assert.True(t, changed)
	// Canned data never hits the wire
	assert.Empty(t, client.lookups)

	state, err := database.GetCurrentState("example.com")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "Registrar of canned response", state.Canonical().Registrar)
}

func TestTransientFailureRetriesThenSkips(t *testing.T) {
	client := &fakeWhois{lookupErr: fmt.Errorf("%w: connect timed out", whois.ErrTransient)}
	sleeps := 0
	b, database := newTestBackend(t, client, &fakeResolver{}, Options{MaxRetries: 2})
	b.sleep = func(time.Duration) { sleeps++ }

	changed, err := b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)
	// Conservative signal: the caller must not conclude "no changes"
	assert.True(t, changed)
	assert.Len(t, client.lookups, 2)
	assert.Equal(t, 1, sleeps)

	// The failed check stores nothing, not even last_checked
	domain, err := database.GetDomain("example.com")
	require.NoError(t, err)
	assert.Nil(t, domain.LastChecked)
	assert.Nil(t, domain.LastStateID)
}

func TestCommFailureInCannedData(t *testing.T) {
	b, database := newTestBackend(t, &fakeWhois{}, &fakeResolver{}, Options{MaxRetries: 2})

	changed, err := b.CheckDomain(context.Background(), "example.com", whois.CommFailureText+": giving up")
	require.NoError(t, err)
	assert.True(t, changed)

	domain, err := database.GetDomain("example.com")
	require.NoError(t, err)
	assert.Nil(t, domain.LastChecked)
}

func TestNonTransientLookupErrorAborts(t *testing.T) {
	client := &fakeWhois{lookupErr: fmt.Errorf("parser exploded")}
	b, _ := newTestBackend(t, client, &fakeResolver{}, Options{MaxRetries: 3})

	_, err := b.CheckDomain(context.Background(), "example.com", "")
	require.Error(t, err)
	assert.Len(t, client.lookups, 1)
}

func TestParseFailureAborts(t *testing.T) {
	client := &fakeWhois{rawText: "garbage", parseErr: fmt.Errorf("%w: no useful fields", whois.ErrParse)}
	b, database := newTestBackend(t, client, &fakeResolver{}, Options{MaxRetries: 3})

	_, err := b.CheckDomain(context.Background(), "example.com", "")
	require.ErrorIs(t, err, whois.ErrParse)

	domain, err := database.GetDomain("example.com")
	require.NoError(t, err)
	assert.Nil(t, domain.LastChecked)
}

func TestIDNConvertedBeforeLookup(t *testing.T) {
	client := &fakeWhois{rawText: "registry response"}
	b, _ := newTestBackend(t, client, &fakeResolver{}, Options{
		DNSBehavior: model.DNSForceNo,
		MaxRetries:  1,
	})

	_, err := b.CheckDomain(context.Background(), "bücher.example", "")
	require.NoError(t, err)
	require.Len(t, client.lookups, 1)
	assert.Equal(t, "xn--bcher-kva.example", client.lookups[0])
}

func TestDNSDisabledUsesSentinel(t *testing.T) {
	res := &fakeResolver{}
	b, database := newTestBackend(t, &fakeWhois{rawText: "registry response"}, res, Options{
		DNSBehavior: model.DNSForceNo,
		MaxRetries:  1,
	})

	_, err := b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.Empty(t, res.queries)

	state, err := database.GetCurrentState("example.com")
	require.NoError(t, err)
	rec := state.Canonical()
	assert.Equal(t, model.LookupsDisabled, rec.IP)
	assert.Equal(t, model.LookupsDisabled, rec.MX)

	domain, err := database.GetDomain("example.com")
	require.NoError(t, err)
	assert.False(t, domain.DoDNS)
}

func TestForceEnableDNSDetectsSentinelTransition(t *testing.T) {
	res := &fakeResolver{answers: map[string][]string{
		model.RecordTypeA: {"192.0.2.10"},
	}}
	b, database := newTestBackend(t, &fakeWhois{rawText: "registry response"}, res, Options{
		DNSBehavior: model.DNSForceNo,
		MaxRetries:  1,
	})

	_, err := b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)

	b.dnsBehavior = model.DNSForceYes
	changed, err := b.CheckDomain(context.Background(), "example.com", "")
	require.NoError(t, err)
	assert.True(t, changed)

	state, err := database.GetCurrentState("example.com")
	require.NoError(t, err)
	assert.Equal(t, "192.0.2.10", state.Canonical().IP)

	// The flipped preference sticks for future default-behavior runs
	domain, err := database.GetDomain("example.com")
	require.NoError(t, err)
	assert.True(t, domain.DoDNS)
}

func TestCheckAllPacingAndInactiveSkip(t *testing.T) {
	client := &fakeWhois{rawText: "registry response"}
	sleeps := 0
	b, database := newTestBackend(t, client, &fakeResolver{}, Options{
		DNSBehavior:         model.DNSForceNo,
		DelayBetweenDomains: 30 * time.Second,
		MaxRetries:          1,
	})
	b.sleep = func(d time.Duration) {
		assert.Equal(t, 30*time.Second, d)
		sleeps++
	}

	for _, name := range []string{"alpha.example", "beta.example", "gamma.example"} {
		_, err := database.CreateDomain(name, false)
		require.NoError(t, err)
	}
	require.NoError(t, database.SetActive("beta.example", false))

	changed, err := b.CheckAll(context.Background())
	require.NoError(t, err)
	assert.True(t, changed)

	// Alphabetical order, inactive domain skipped, delay only between checks
	assert.Equal(t, []string{"alpha.example", "gamma.example"}, client.lookups)
	assert.Equal(t, 1, sleeps)
}

func TestCheckAllSkipsDomainOnResolverFailure(t *testing.T) {
	res := &fakeResolver{err: fmt.Errorf("%w: all servers timed out", resolver.ErrLookup)}
	client := &fakeWhois{rawText: "registry response"}
	b, database := newTestBackend(t, client, res, Options{MaxRetries: 1})

	_, err := database.CreateDomain("alpha.example", true)
	require.NoError(t, err)
	_, err = database.CreateDomain("beta.example", false)
	require.NoError(t, err)

	_, err = b.CheckAll(context.Background())
	require.ErrorIs(t, err, resolver.ErrLookup)

	// The DNS-enabled domain was skipped without storing, the DNS-disabled
	// one completed normally.
	alpha, err := database.GetDomain("alpha.example")
	require.NoError(t, err)
	assert.Nil(t, alpha.LastChecked)

	beta, err := database.GetDomain("beta.example")
	require.NoError(t, err)
	assert.NotNil(t, beta.LastChecked)
}
