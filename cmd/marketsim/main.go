package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/skinecon/marketsim/internal/logging"
	"github.com/skinecon/marketsim/internal/sim"
)

var (
	configPath string
	seedFlag   int64
	stepsFlag  int64
	feeFlag    float64
)

func main() {
	root := &cobra.Command{
		Use:   "marketsim",
		Short: "Agent-based virtual-item market simulator",
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to yaml config (defaults used when empty)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a single seeded simulation",
		RunE:  runSingle,
	}
	runCmd.Flags().Int64Var(&seedFlag, "seed", 0, "override the config seed")
	runCmd.Flags().Int64Var(&stepsFlag, "steps", 0, "override the number of steps")
	runCmd.Flags().Float64Var(&feeFlag, "fee", 0, "override the market fee")

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the fee sweep and write a CSV summary",
		RunE:  runSweep,
	}

	root.AddCommand(runCmd, sweepCmd)
	if err := root.Execute(); err != nil {
		logrus.WithError(err).Fatal("marketsim failed")
	}
}

func loadConfig(cmd *cobra.Command) (sim.Config, error) {
	cfg := sim.DefaultConfig()
	if configPath != "" {
		loaded, err := sim.Load(configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("seed") {
		cfg.Seed = seedFlag
	}
	if cmd.Flags().Changed("steps") {
		cfg.Steps = stepsFlag
	}
	if cmd.Flags().Changed("fee") {
		cfg.MarketFee = feeFlag
	}
	return cfg, logging.Init(cfg.Logging)
}

func runSingle(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	result, err := sim.Run(cfg, cfg.Seed)
	if err != nil {
		return err
	}
	fmt.Printf("run %s: sales=%d avg_price=%dc total_fee=$%s drops=%d\n",
		result.RunID, result.TotalSales, result.AvgPriceCents, result.TotalFee.String(), result.TotalDrops)
	return nil
}

func runSweep(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	summaries, err := sim.Sweep(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	for _, s := range summaries {
		fmt.Printf("fee=%.2f avg_sales=%.1f±%.1f avg_price=%.1fc±%.1f avg_total_fee=$%.2f±%.2f\n",
			s.Fee, s.AvgSales, s.StdSales, s.AvgPrice, s.StdPrice, s.AvgTotalFee, s.StdTotalFee)
	}
	return nil
}
