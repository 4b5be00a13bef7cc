// Command afqmc drives walker batches through a demo imaginary-time loop and
// analyzes the recorded estimator series.
package main

import (
	"math/cmplx"
	"math/rand/v2"
	"os"
	"time"

	"github.com/fumin/tensor"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"afqmc"
	"afqmc/analysis"
	"afqmc/backend"
	"afqmc/checkpoint"
	"afqmc/trial"
)

var logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

func main() {
	cfg := DefaultConfig()
	var cfgPath string

	root := &cobra.Command{
		Use:           "afqmc",
		Short:         "AFQMC walker population mechanics",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "sqlite database path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a walker batch and record estimator series",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				if err := LoadFileConfig(&cfg, cfgPath); err != nil {
					return err
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}
	runCmd.Flags().IntVar(&cfg.NumWalkers, "walkers", cfg.NumWalkers, "number of walkers")
	runCmd.Flags().IntVar(&cfg.NumSteps, "steps", cfg.NumSteps, "number of steps")
	runCmd.Flags().IntVar(&cfg.ReorthoEvery, "reortho-every", cfg.ReorthoEvery, "steps between reorthonormalizations")
	runCmd.Flags().BoolVar(&cfg.Batched, "batched", cfg.Batched, "use the batched reorthonormalization mode")
	runCmd.Flags().IntVar(&cfg.Workers, "workers", cfg.Workers, "offload pool size; 0 selects GOMAXPROCS")
	runCmd.Flags().Uint64Var(&cfg.Seed, "seed", cfg.Seed, "random seed")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [series]",
		Short: "Reblock a recorded estimator series",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "log_detR"
			if len(args) > 0 {
				name = args[0]
			}
			return analyze(cfg.DBPath, name)
		},
	}

	root.AddCommand(runCmd, analyzeCmd)
	if err := root.Execute(); err != nil {
		logger.Error().Err(err).Msg("afqmc")
		os.Exit(1)
	}
}

func run(cfg Config) error {
	rng := rand.New(rand.NewPCG(cfg.Seed, 0))
	tr := trial.Rand(rng, cfg.NBasis, cfg.NUp, cfg.NDown)
	_, initial, err := afqmc.InitialWalker(tr)
	if err != nil {
		return errors.Wrap(err, "")
	}

	opt := afqmc.NewOptions().Batched(cfg.Batched)
	if cfg.Batched {
		opt = opt.Backend(backend.NewOffload(cfg.Workers))
	}
	w, err := afqmc.New(initial, tr, cfg.NUp, cfg.NDown, cfg.NBasis, cfg.NumWalkers, cfg.NumWalkers, cfg.NumSteps, opt)
	if err != nil {
		return errors.Wrap(err, "")
	}
	if err := w.Build(tr); err != nil {
		return errors.Wrap(err, "")
	}

	store, err := checkpoint.Open(cfg.DBPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer store.Close()

	logger.Info().
		Int("walkers", cfg.NumWalkers).Int("nbasis", cfg.NBasis).
		Int("nup", cfg.NUp).Int("ndown", cfg.NDown).
		Bool("batched", cfg.Batched).
		Msg("starting run")

	for step := 1; step <= cfg.NumSteps; step++ {
		// Stand-in for the external propagator: a small random drift of
		// every orbital, enough to accumulate floating point skew.
		for iw := 0; iw < w.NumWalkersLocal; iw++ {
			drift(rng, w.PhiA[iw])
			if w.NDown > 0 {
				drift(rng, w.PhiB[iw])
			}
		}

		if step%cfg.ReorthoEvery != 0 {
			continue
		}
		detR, err := w.Reortho()
		if err != nil {
			return errors.Wrapf(err, "step %d", step)
		}

		var detRMean, logDetRMean float64
		for iw, d := range detR {
			detRMean += cmplx.Abs(complex128(d))
			logDetRMean += w.LogDetR[iw]
		}
		detRMean /= float64(len(detR))
		logDetRMean /= float64(len(detR))
		if err := store.AppendSeries(step, "detR", detRMean); err != nil {
			return errors.Wrap(err, "")
		}
		if err := store.AppendSeries(step, "log_detR", logDetRMean); err != nil {
			return errors.Wrap(err, "")
		}
	}

	if err := store.Save(w, cfg.NumSteps); err != nil {
		return errors.Wrap(err, "")
	}
	logger.Info().Int("steps", cfg.NumSteps).Str("db", cfg.DBPath).Msg("run done")
	return nil
}

func analyze(dbPath, name string) error {
	store, err := checkpoint.Open(dbPath)
	if err != nil {
		return errors.Wrap(err, "")
	}
	defer store.Close()

	ys, err := store.Series(name)
	if err != nil {
		return errors.Wrap(err, "")
	}
	rb, err := analysis.ReblockByAutocorr(ys)
	if err != nil {
		return errors.Wrapf(err, "series %s has %d samples", name, len(ys))
	}

	logger.Info().
		Str("series", name).
		Float64("mean", rb.Mean).Float64("err", rb.Err).
		Int("blocks", rb.NumBlocks).Int("block_size", rb.BlockSize).
		Msg("reblocked")
	return nil
}

func drift(rng *rand.Rand, phi *tensor.Dense) {
	const eps = 1e-3
	for ijk, v := range phi.All() {
		dv := complex(rng.Float32()*2-1, rng.Float32()*2-1)
		phi.SetAt(ijk, v+eps*dv)
	}
}
