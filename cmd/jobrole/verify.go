package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	jobapp "github.com/elavarasan2006/jobrole/internal/app"
	"github.com/elavarasan2006/jobrole/internal/artifact"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [dir]",
	Short: "Check a bundle's manifest and that it loads",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := setup()
		if err != nil {
			return err
		}
		base := cfg.Artifacts.Dir
		if len(args) == 1 {
			base = args[0]
		}

		dir, version, err := artifact.ResolveDir(base)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		m, err := artifact.VerifyIntegrity(dir)
		switch {
		case errors.Is(err, artifact.ErrNoManifest):
			fmt.Fprintf(out, "manifest: none in %s\n", dir)
		case err != nil:
			return err
		default:
			fmt.Fprintf(out, "manifest: ok (%d files, version %q)\n", len(m.Files), m.Version)
		}

		opts := jobapp.BundleOptions(cfg)
		opts.Verify = false
		opts.Version = version
		b, err := artifact.Load(dir, opts)
		if err != nil {
			return err
		}
		defer b.Close()

		_, encErr := b.Encoders()
		fmt.Fprintf(out, "bundle: ok (dir %s, version %q, columns %d, probabilities %t)\n",
			b.Dir(), b.Version(), b.NumColumns(), b.SupportsProbabilities())
		if encErr != nil {
			fmt.Fprintf(out, "encoders: unavailable, requests will use the fallback path: %v\n", encErr)
		} else {
			fmt.Fprintln(out, "encoders: ok")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
