package commands

import (
	"fmt"
	"path"
	"runtime"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"github.com/whoiswatch/whoiswatch/pkg/db"
	"gorm.io/gorm"
)

func GetCommands() []*cli.Command {
	return []*cli.Command{
		checkCommand(),
		listCommand(),
		infoCommand(),
		activateCommand(),
		deactivateCommand(),
		purgeCommand(),
		wipeCommand(),
		serverCommand(),
		versionCommand(),
	}
}

func GlobalFlags() []cli.Flag {
	globalFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "log-level",
			Usage:   "Log Level",
			Aliases: []string{"l"},
			EnvVars: []string{"LOGLEVEL"},
			Value:   "info",
		},
		&cli.BoolFlag{
			Name:  "log-caller",
			Usage: "log the caller (aka line number and file)",
		},
	}

	return globalFlags
}

func Before(c *cli.Context) error {
	// Optional .env bootstrap so the env-var-backed flags below can be
	// configured from a file
	_ = godotenv.Load()

	formatter := &logrus.JSONFormatter{}

	if c.Bool("log-caller") {
		logrus.SetReportCaller(true)

		formatter.CallerPrettyfier = func(f *runtime.Frame) (string, string) {
			return "", fmt.Sprintf("%s:%d", path.Base(f.File), f.Line)
		}
	}

	logrus.SetFormatter(formatter)

	switch c.String("log-level") {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	}

	return nil
}

func storeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "sql-dialect",
			Usage:   "The type of sql to use, sqlite or mysql",
			EnvVars: []string{"WHOISWATCH_SQL_DIALECT", "SQL_DIALECT"},
			Value:   "sqlite",
		},
		&cli.StringFlag{
			Name:    "sql-dsn",
			Usage:   "The DSN to use to connect to",
			EnvVars: []string{"WHOISWATCH_SQL_DSN", "SQL_DSN"},
			Value:   "file:whoiswatch.sqlite?_pragma=foreign_keys(1)",
		},
	}
}

func newDatabase(c *cli.Context) (db.Database, error) {
	return db.New(c.Context, c.String("sql-dialect"), c.String("sql-dsn"), &gorm.Config{
		Logger: db.NewLogger(c.String("log-level")),
	})
}
