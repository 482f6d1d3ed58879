package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"GapSentinel/internal/scheduler"
	"GapSentinel/internal/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "bot",
	Short: "Gap-and-go momentum scanner with bracket order entry and end-of-day liquidation",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the scheduler, HTTP status server and Telegram commands until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		scanNow, err := cmd.Flags().GetBool("scan-now")
		if err != nil {
			log.Fatalf("error getting scan-now: %v", err)
		}
		if err := runDaemon(scanNow || os.Getenv("RUN_ON_START") == "true"); err != nil {
			log.Fatalf("run: %v", err)
		}
	},
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan cycle now and exit",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, configPath)
		if err != nil {
			log.Fatalf("init: %v", err)
		}
		defer a.Close()
		fmt.Println(a.scanner.RunCycle(ctx).String())
	},
}

var liquidateCmd = &cobra.Command{
	Use:   "liquidate",
	Short: "Close every open position now and book the day's P&L",
	Run: func(cmd *cobra.Command, args []string) {
		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		a, err := newApp(ctx, configPath)
		if err != nil {
			log.Fatalf("init: %v", err)
		}
		defer a.Close()
		res, err := a.liquidator.Run(ctx)
		if err != nil {
			log.Errorf("liquidate: %v", err)
			return
		}
		fmt.Println(res.String())
	},
}

func runDaemon(scanNow bool) error {
	ctx, cancel := signal.NotifyContext(rootCmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := newApp(ctx, configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := scheduler.NewScheduler(ctx, a.cfg.Location(), a.scanner, a.liquidator, a.broker, a.ledger, a.store)
	if err := sched.RegisterAll(scheduler.Schedule{
		ScanCron:      a.cfg.Schedule.ScanCron,
		LiquidateCron: a.cfg.Schedule.LiquidateCron,
		RiskResetCron: a.cfg.Schedule.RiskResetCron,
	}); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	server.New(a.cfg.HTTP.Addr, a.store, a.guard, a.ledger, a.metrics).Start(ctx)

	if a.telegram.Enabled() {
		go a.telegram.StartPolling(ctx, sched.HandleCommand)
		log.Info("telegram polling started")
	}

	if scanNow {
		log.Info("scan-now enabled, executing one scan cycle")
		go sched.RunScanNow()
	}

	log.Info("GapSentinel is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	log.Info("shutdown signal received, stopping...")
	return nil
}

func main() {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", defaultPath, "path to the YAML config file")
	runCmd.Flags().Bool("scan-now", false, "run one scan cycle immediately on start")
	rootCmd.AddCommand(runCmd, scanCmd, liquidateCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
