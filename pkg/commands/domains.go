package commands

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"
	"github.com/whoiswatch/whoiswatch/pkg/model"
)

func listCommand() *cli.Command {
	return &cli.Command{
		Name:   "list",
		Usage:  "list all known domains",
		Flags:  append(storeFlags(), GlobalFlags()...),
		Before: Before,
		Action: func(c *cli.Context) error {
			database, err := newDatabase(c)
			if err != nil {
				return err
			}
			back, err := newReportingBackend(database)
			if err != nil {
				return err
			}

			domains, err := back.ListDomains()
			if err != nil {
				return err
			}
			for _, d := range domains {
				var extra []string
				if !d.ActiveChecks {
					extra = append(extra, "active checks disabled")
				}
				if !d.DoDNS {
					extra = append(extra, "dns lookups disabled")
				}
				if len(extra) > 0 {
					fmt.Printf("%s (%s)\n", d.Name, strings.Join(extra, ", "))
				} else {
					fmt.Println(d.Name)
				}
			}
			return nil
		},
	}
}

func infoCommand() *cli.Command {
	return &cli.Command{
		Name:      "info",
		Usage:     "show historic information about a domain",
		ArgsUsage: "<domain>",
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "whois",
				Usage:   "include the full raw whois output",
				Aliases: []string{"w"},
			},
		}, append(storeFlags(), GlobalFlags()...)...),
		Before: Before,
		Action: func(c *cli.Context) error {
			domain := c.Args().First()
			if domain == "" {
				return fmt.Errorf("domain argument is required")
			}

			database, err := newDatabase(c)
			if err != nil {
				return err
			}
			back, err := newReportingBackend(database)
			if err != nil {
				return err
			}

			hist, err := back.GetHistory(domain)
			if err != nil {
				return err
			}

			printHistory(hist, c.Bool("whois"))
			return nil
		},
	}
}

func printHistory(hist model.HistoryResponse, showRaw bool) {
	header := hist.Name
	if !hist.ActiveChecks {
		header += " (active checks disabled)"
	}
	fmt.Println(header)
	fmt.Println(strings.Repeat("=", len(header)))

	if hist.FirstChecked != "" {
		fmt.Printf("First checked: %s\n", hist.FirstChecked)
	}
	if hist.LastChecked != "" {
		fmt.Printf("Last checked: %s\n", hist.LastChecked)
	}

	if hist.Current == nil {
		fmt.Println("No current state data!")
	} else {
		fmt.Println()
		fmt.Printf("  %23s: %s\n", "State Since", hist.StateSince)
		for _, dp := range model.Datapoints {
			fmt.Printf("  %23s: %s\n", dp.Label, hist.Current[dp.Key])
		}
	}
	fmt.Println()

	if showRaw {
		fmt.Println("Raw Whois Data")
		fmt.Println("--------------")
		fmt.Println()
		fmt.Println(hist.RawText)
		fmt.Println()
	}

	if len(hist.History) == 0 {
		fmt.Println("(No history to show)")
		fmt.Println()
		return
	}
	for _, state := range hist.History {
		headerLine := fmt.Sprintf("Changes at %s", state.CheckTime)
		fmt.Println(headerLine)
		fmt.Println(strings.Repeat("-", len(headerLine)))
		for _, ch := range state.Changes {
			fmt.Printf(" - %s: %s -> %s\n", ch.Label, ch.From, ch.To)
		}
		fmt.Println()
	}
}

func activateCommand() *cli.Command {
	return setActiveCommand("activate", "ensure a domain is being actively checked", true)
}

func deactivateCommand() *cli.Command {
	return setActiveCommand("deactivate", "ensure a domain is NOT being actively checked", false)
}

func setActiveCommand(name, usage string, active bool) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<domain>",
		Flags:     append(storeFlags(), GlobalFlags()...),
		Before:    Before,
		Action: func(c *cli.Context) error {
			domain := c.Args().First()
			if domain == "" {
				return fmt.Errorf("domain argument is required")
			}

			database, err := newDatabase(c)
			if err != nil {
				return err
			}
			back, err := newReportingBackend(database)
			if err != nil {
				return err
			}

			if err := back.SetActive(domain, active); err != nil {
				return err
			}
			report := "disabled"
			if active {
				report = "enabled"
			}
			fmt.Printf("Active checks for %s %s\n", domain, report)
			return nil
		},
	}
}

func purgeCommand() *cli.Command {
	return &cli.Command{
		Name:      "purge",
		Usage:     "purge a domain and its entire history from the database",
		ArgsUsage: "<domain>",
		Flags:     append(storeFlags(), GlobalFlags()...),
		Before:    Before,
		Action: func(c *cli.Context) error {
			domain := c.Args().First()
			if domain == "" {
				return fmt.Errorf("domain argument is required")
			}

			database, err := newDatabase(c)
			if err != nil {
				return err
			}
			back, err := newReportingBackend(database)
			if err != nil {
				return err
			}

			if err := back.Purge(domain); err != nil {
				return err
			}
			fmt.Printf("%s purged from database\n", domain)
			return nil
		},
	}
}

func wipeCommand() *cli.Command {
	return &cli.Command{
		Name:   "wipe",
		Usage:  "wipe the database. Use with caution!",
		Flags:  append(storeFlags(), GlobalFlags()...),
		Before: Before,
		Action: func(c *cli.Context) error {
			database, err := newDatabase(c)
			if err != nil {
				return err
			}
			return database.Wipe()
		},
	}
}
