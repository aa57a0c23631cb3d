package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rancher/wrangler/pkg/signals"
	"github.com/urfave/cli/v2"
	"github.com/whoiswatch/whoiswatch/pkg/backend"
	"github.com/whoiswatch/whoiswatch/pkg/db"
	"github.com/whoiswatch/whoiswatch/pkg/model"
	"github.com/whoiswatch/whoiswatch/pkg/resolver"
	"github.com/whoiswatch/whoiswatch/pkg/whois"
)

const whoisTimeout = 30 * time.Second

type checkCmd struct{}

func (cmd *checkCmd) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	database, err := newDatabase(c)
	if err != nil {
		return err
	}

	back, err := newCheckerBackend(c, database)
	if err != nil {
		return err
	}

	var changed bool
	if c.Bool("all") {
		changed, err = back.CheckAll(ctx)
	} else {
		domain := c.Args().First()
		if domain == "" {
			return fmt.Errorf("either a domain argument or --all is required")
		}
		var canned string
		if file := c.String("from-file"); file != "" {
			data, err := os.ReadFile(file)
			if err != nil {
				return err
			}
			canned = string(data)
		}
		changed, err = back.CheckDomain(ctx, domain, canned)
	}
	if err != nil {
		return err
	}

	if changed {
		// Scripts watch for exit code 2 to notice changes
		return cli.Exit("", 2)
	}
	return nil
}

func checkCommand() *cli.Command {
	cmd := checkCmd{}

	flags := []cli.Flag{
		&cli.BoolFlag{
			Name:    "all",
			Usage:   "Check all domains with active checks enabled",
			Aliases: []string{"a"},
		},
		&cli.StringFlag{
			Name:    "from-file",
			Usage:   "Filename with canned whois data, to avoid network calls while testing",
			Aliases: []string{"f"},
		},
	}
	flags = append(flags, checkerFlags()...)
	flags = append(flags, storeFlags()...)

	return &cli.Command{
		Name:      "check",
		Usage:     "check one domain (adding it if unknown) or all domains",
		ArgsUsage: "[domain]",
		Action:    cmd.Execute,
		Flags:     append(flags, GlobalFlags()...),
		Before:    Before,
	}
}

func checkerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "dns",
			Usage: "Store DNS data even if the domain is configured not to; reconfigures the domain for future runs",
		},
		&cli.BoolFlag{
			Name:  "no-dns",
			Usage: "Do not store DNS data even if the domain is configured to; reconfigures the domain for future runs",
		},
		&cli.IntFlag{
			Name:    "secs",
			Usage:   "Seconds to wait between domains, and between whois retries",
			Aliases: []string{"s"},
			EnvVars: []string{"WHOISWATCH_DELAY_SECS"},
			Value:   30,
		},
		&cli.IntFlag{
			Name:    "retries",
			Usage:   "Times to attempt a whois lookup before giving up on a domain",
			Aliases: []string{"r"},
			EnvVars: []string{"WHOISWATCH_MAX_RETRIES"},
			Value:   3,
		},
	}
}

func newCheckerBackend(c *cli.Context, database db.Database) (backend.Backend, error) {
	if c.Bool("dns") && c.Bool("no-dns") {
		return nil, fmt.Errorf("--dns and --no-dns are mutually exclusive")
	}
	behavior := model.DNSDomainDefault
	if c.Bool("dns") {
		behavior = model.DNSForceYes
	} else if c.Bool("no-dns") {
		behavior = model.DNSForceNo
	}

	res, err := resolver.New()
	if err != nil {
		return nil, err
	}

	return backend.New(database, whois.NewClient(whoisTimeout), res, backend.Options{
		DNSBehavior:          behavior,
		DelayBetweenDomains:  time.Duration(c.Int("secs")) * time.Second,
		MaxRetries:           c.Int("retries"),
		CheckIntervalSeconds: c.Int64("check-interval"),
	})
}

// newReportingBackend wires a backend for operations that never touch the
// whois or DNS transports.
func newReportingBackend(database db.Database) (backend.Backend, error) {
	return backend.New(database, nil, nil, backend.Options{})
}
