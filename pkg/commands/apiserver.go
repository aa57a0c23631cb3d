package commands

import (
	"context"

	"github.com/rancher/wrangler/pkg/signals"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/whoiswatch/whoiswatch/pkg/apiserver"
	"github.com/whoiswatch/whoiswatch/pkg/version"
)

type apiServerCommand struct{}

func (s *apiServerCommand) Execute(c *cli.Context) error {
	ctx := signals.SetupSignalHandler(context.Background())

	log := logrus.WithField("command", "serve")

	log.Infof("version: %v", version.Get())

	database, err := newDatabase(c)
	if err != nil {
		return err
	}

	back, err := newCheckerBackend(c, database)
	if err != nil {
		return err
	}

	apiServer := apiserver.NewAPIServer(ctx, log, c.Int("port"))

	return apiServer.Start(back)
}

func serverCommand() *cli.Command {
	cmd := apiServerCommand{}

	flags := []cli.Flag{
		&cli.IntFlag{
			Name:    "port",
			Usage:   "Port for the HTTP Server Port",
			EnvVars: []string{"WHOISWATCH_PORT", "PORT"},
			Value:   4316,
		},
		&cli.Int64Flag{
			Name:    "check-interval",
			Usage:   "Seconds between full check cycles",
			EnvVars: []string{"WHOISWATCH_CHECK_INTERVAL"},
			Value:   3600,
		},
	}
	flags = append(flags, checkerFlags()...)
	flags = append(flags, storeFlags()...)

	return &cli.Command{
		Name:   "serve",
		Usage:  "run the reporting api server and periodic checker",
		Action: cmd.Execute,
		Flags:  append(flags, GlobalFlags()...),
		Before: Before,
	}
}
