package sim

import (
	"context"
	"encoding/csv"
	"math"
	"os"
	"runtime"
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// FeeSummary aggregates the runs sharing one fee setting. Prices and
// fees are reported in the same units the runs produced: average price
// in cents, total fee in dollars.
type FeeSummary struct {
	Fee         float64
	AvgSales    float64
	StdSales    float64
	AvgPrice    float64
	StdPrice    float64
	AvgTotalFee float64
	StdTotalFee float64
}

// Sweep executes RunsPerFee independent simulations per fee setting in
// parallel. Runs never share state, so the engine stays single-writer
// within each run; parallelism exists only across runs.
func Sweep(ctx context.Context, cfg Config) ([]FeeSummary, error) {
	sc := cfg.Sweep
	if len(sc.Fees) == 0 {
		return nil, errors.New("sweep.fees must not be empty")
	}
	if sc.RunsPerFee <= 0 {
		return nil, errors.New("sweep.runs_per_fee must be positive")
	}
	workers := sc.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	type task struct {
		fee  float64
		seed int64
	}
	var tasks []task
	for _, fee := range sc.Fees {
		for i := 0; i < sc.RunsPerFee; i++ {
			tasks = append(tasks, task{fee: fee, seed: int64(fee*100) + int64(i)})
		}
	}

	results := make([]RunResult, len(tasks))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range tasks {
		i, t := i, t
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			runCfg := cfg
			runCfg.MarketFee = t.fee
			r, err := Run(runCfg, t.seed)
			if err != nil {
				return errors.Wrapf(err, "run fee=%.2f seed=%d", t.fee, t.seed)
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byFee := make(map[float64][]RunResult)
	for _, r := range results {
		byFee[r.Fee] = append(byFee[r.Fee], r)
	}

	summaries := make([]FeeSummary, 0, len(sc.Fees))
	for _, fee := range sc.Fees {
		batch := byFee[fee]
		sales := make([]float64, len(batch))
		prices := make([]float64, len(batch))
		fees := make([]float64, len(batch))
		for i, r := range batch {
			sales[i] = float64(r.TotalSales)
			prices[i] = float64(r.AvgPriceCents)
			fees[i] = r.TotalFee.InexactFloat64()
		}
		summaries = append(summaries, FeeSummary{
			Fee:         fee,
			AvgSales:    meanFloat(sales),
			StdSales:    stdevFloat(sales),
			AvgPrice:    meanFloat(prices),
			StdPrice:    stdevFloat(prices),
			AvgTotalFee: meanFloat(fees),
			StdTotalFee: stdevFloat(fees),
		})
	}

	if sc.Output != "" {
		if err := WriteSummaryCSV(sc.Output, summaries); err != nil {
			return nil, err
		}
		logrus.WithField("path", sc.Output).Info("sweep results written")
	}
	return summaries, nil
}

// WriteSummaryCSV writes the per-fee summary table.
func WriteSummaryCSV(path string, summaries []FeeSummary) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"fee", "avg_sales", "std_sales", "avg_price", "std_price", "avg_total_fee", "std_total_fee",
	}); err != nil {
		return errors.Wrap(err, "write csv header")
	}
	for _, s := range summaries {
		record := []string{
			formatFloat(s.Fee),
			formatFloat(s.AvgSales),
			formatFloat(s.StdSales),
			formatFloat(s.AvgPrice),
			formatFloat(s.StdPrice),
			formatFloat(s.AvgTotalFee),
			formatFloat(s.StdTotalFee),
		}
		if err := w.Write(record); err != nil {
			return errors.Wrap(err, "write csv record")
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func meanFloat(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stdevFloat is the sample standard deviation; zero for fewer than two
// samples.
func stdevFloat(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := meanFloat(values)
	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}
	return math.Sqrt(sum / float64(len(values)-1))
}
