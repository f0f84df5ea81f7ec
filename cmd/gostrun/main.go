package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/liondandelion/opengost/internal/registry"
	"github.com/liondandelion/opengost/internal/selftest"
	"github.com/liondandelion/opengost/internal/utils"
)

var errChecksFailed = errors.New("self-test failed")

func newRootCmd() *cobra.Command {
	var (
		verbosity int
		logFormat string
	)
	reg := registry.Default()

	rootCmd := &cobra.Command{
		Use:          "gostrun",
		SilenceUsage: true,
		Short:        "Run and measure the GOST primitives",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			utils.SetLogVerbosity(verbosity)
			return utils.SetLogFormat(logFormat)
		},
	}
	rootCmd.PersistentFlags().IntVarP(&verbosity, "verbosity", "v", 1, "log verbosity, 0 (errors) to 4 (debug)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "console", "log format: console or json")

	rootCmd.AddCommand(
		selftestCmd(reg),
		algorithmsCmd(reg),
		digestCmd(reg),
		macCmd(reg),
		benchCmd(reg),
	)
	return rootCmd
}

func selftestCmd(reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "selftest",
		Short: "Check every primitive against its known answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range selftest.Run(reg) {
				if r.OK() {
					fmt.Fprintf(out, "%-40s OK\n", r.Name)
					continue
				}
				failed++
				fmt.Fprintf(out, "%-40s FAILED: %v\n", r.Name, r.Err)
				utils.Logger().Error().Str("check", r.Name).Err(r.Err).Msg("self-test failed")
			}
			if failed > 0 {
				return errors.Wrapf(errChecksFailed, "%d of %d checks", failed, len(selftest.Checks()))
			}
			return nil
		},
	}
}

func algorithmsCmd(reg *registry.Registry) *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the registered algorithms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tKIND\tOID\tDIGEST")
			for _, info := range reg.Names() {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", info.Name, info.Kind, info.OID, info.Digest)
			}
			return w.Flush()
		},
	}
}

// input opens the named file, or stdin for "-" or no name.
func input(cmd *cobra.Command, args []string) (io.ReadCloser, error) {
	if len(args) == 0 || args[0] == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	return os.Open(args[0])
}

func digestCmd(reg *registry.Registry) *cobra.Command {
	var alg string
	cmd := &cobra.Command{
		Use:   "digest [file]",
		Short: "Print the Streebog digest of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := reg.Hash(alg)
			if err != nil {
				return err
			}
			in, err := input(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()
			if _, err := io.Copy(h, in); err != nil {
				return errors.Wrap(err, "read input")
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(h.Sum(nil)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&alg, "alg", "a", registry.Streebog256, "hash algorithm")
	return cmd
}

func macCmd(reg *registry.Registry) *cobra.Command {
	var alg, keyHex string
	cmd := &cobra.Command{
		Use:   "mac [file]",
		Short: "Print the CMAC or HMAC of a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := hex.DecodeString(keyHex)
			if err != nil {
				return errors.Wrap(err, "--key")
			}
			m, err := reg.MAC(alg, key)
			if err != nil {
				return err
			}
			in, err := input(cmd, args)
			if err != nil {
				return err
			}
			defer in.Close()
			if _, err := io.Copy(m, in); err != nil {
				return errors.Wrap(err, "read input")
			}
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(m.Sum(nil)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&alg, "alg", "a", registry.CMACGrasshopper, "mac algorithm")
	cmd.Flags().StringVarP(&keyHex, "key", "k", "", "hex key")
	_ = cmd.MarkFlagRequired("key")
	return cmd
}

func benchCmd(reg *registry.Registry) *cobra.Command {
	var (
		duration time.Duration
		only     []string
		list     bool
	)
	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure the throughput of the primitives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				for _, b := range selftest.Benchmarks() {
					fmt.Fprintln(cmd.OutOrStdout(), b.Name)
				}
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			ms, err := selftest.Bench(ctx, reg, duration, only...)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', tabwriter.AlignRight)
			fmt.Fprintln(w, "BENCHMARK\tOPS\tOPS/S\tMIB/S\t")
			for _, m := range ms {
				fmt.Fprintf(w, "%s\t%d\t%.0f\t%.2f\t\n", m.Name, m.Ops, m.OpsPerSec(), m.MBps())
			}
			if ferr := w.Flush(); err == nil {
				err = ferr
			}
			if errors.Is(err, context.Canceled) {
				utils.Logger().Warn().Msg("bench interrupted")
				return nil
			}
			return err
		},
	}
	cmd.Flags().DurationVarP(&duration, "duration", "d", time.Second, "time per benchmark")
	cmd.Flags().StringSliceVar(&only, "only", nil, "run only these benchmarks")
	cmd.Flags().BoolVar(&list, "list", false, "list benchmark names")
	return cmd
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
