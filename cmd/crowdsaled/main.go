package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mmna-launch/crowdsale/internal/config"
	httpservice "github.com/mmna-launch/crowdsale/internal/interface/http"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func mainAction(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("invalid config: %s", err)
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	svcConfig := httpservice.Config{
		Port:          cfg.Port,
		AdminUser:     cfg.AdminUser,
		AdminPassword: cfg.AdminPassword,
	}

	svc, err := httpservice.NewService(svcConfig, cfg)
	if err != nil {
		return err
	}

	log.Infof("crowdsale config: %s", cfg)
	log.RegisterExitHandler(svc.Stop)

	log.Info("starting service...")
	if err := svc.Start(); err != nil {
		return err
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)

	return nil
}

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s (%s, %s)", version, commit, date)
	app.Name = "crowdsaled"
	app.Usage = "run or manage the crowdsale daemon"
	app.UsageText = "Run the crowdsale daemon with:\n\tcrowdsaled\nManage it with:\n\tcrowdsaled [global options] command [command options]"
	app.Commands = append(
		app.Commands,
		infoCmd,
		balanceCmd,
		proofCmd,
		switchRoundCmd,
		initCmd,
		whitelistCmd,
		rootCmd,
		collectCmd,
	)
	app.Action = mainAction
	app.Flags = append(app.Flags, urlFlag, adminUserFlag, adminPasswordFlag)

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
