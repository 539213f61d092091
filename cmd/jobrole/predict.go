package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	jobapp "github.com/elavarasan2006/jobrole/internal/app"
	"github.com/elavarasan2006/jobrole/internal/pipeline"
)

var (
	predictFile   string
	predictFields map[string]string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict the role for one profile",
	Long: `Predict the role for one profile given as a JSON object (--file, "-" for stdin)
and/or individual fields (--set "Skills=Python, SQL"). Fields set with --set win.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return predict(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(predictCmd)

	predictCmd.Flags().StringVarP(&predictFile, "file", "f", "", `JSON profile file, "-" reads stdin`)
	predictCmd.Flags().StringToStringVar(&predictFields, "set", nil, `profile field, e.g. --set "CGPA=8.2"`)
}

func readProfile(stdin io.Reader) (map[string]any, error) {
	in := map[string]any{}
	if predictFile != "" {
		var r io.Reader = stdin
		if predictFile != "-" {
			f, err := os.Open(predictFile)
			if err != nil {
				return nil, err
			}
			defer f.Close()
			r = f
		}
		dec := json.NewDecoder(r)
		dec.UseNumber()
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("%w: %v", pipeline.ErrInvalidRequest, err)
		}
	}
	for k, v := range predictFields {
		in[k] = v
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no profile given; use --file or --set", pipeline.ErrInvalidRequest)
	}
	return in, nil
}

func predict(ctx context.Context, stdin io.Reader, stdout io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	profile, err := readProfile(stdin)
	if err != nil {
		return err
	}

	a, err := jobapp.New(cfg, log, false)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	if err := a.Start(ctx); err != nil {
		return err
	}

	res, err := a.Service.PredictMap(ctx, profile, "")
	if err != nil {
		log.Error("prediction failed", zap.String("code", pipeline.Code(err)), zap.Error(err))
		return err
	}
	log.Debug("prediction", zap.String("path", res.Path), zap.String("bundle_version", res.BundleVersion))

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Prediction)
}
