package main

import (
	"bufio"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/attribution-cli/internal/model"
)

var (
	batchInput       string
	batchConcurrency int
	batchFormat      string
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Resolve attribution for a list of image URLs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		f, err := os.Open(batchInput)
		if err != nil {
			return eris.Wrapf(err, "open %s", batchInput)
		}
		defer f.Close()

		refs, err := readImageList(f)
		if err != nil {
			return err
		}

		if batchConcurrency > 0 {
			cfg.Batch.MaxConcurrent = batchConcurrency
		}
		env, err := initPipeline("batch")
		if err != nil {
			return err
		}
		defer env.Close()

		zap.L().Info("processing batch",
			zap.Int("images", len(refs)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrent),
		)

		out, err := env.Pipeline.ResolveBatch(ctx, refs, requestOptions(nil, 0, 0, -1))
		if err != nil {
			return eris.Wrap(err, "resolve batch")
		}
		return writeOutput(cmd.OutOrStdout(), batchFormat, out)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchInput, "input", "", "file with one image URL per line")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "images resolved in parallel (default from config)")
	batchCmd.Flags().StringVar(&batchFormat, "format", "json", "output format: json or yaml")
	_ = batchCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(batchCmd)
}

// readImageList reads one URL per line, skipping blanks and # comments.
func readImageList(r io.Reader) ([]model.ImageRef, error) {
	var refs []model.ImageRef
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		refs = append(refs, model.ImageRef{URL: line})
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "read image list")
	}
	return refs, nil
}
