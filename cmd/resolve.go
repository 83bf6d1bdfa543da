package main

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/attribution-cli/internal/metadata"
	"github.com/sells-group/attribution-cli/internal/model"
	"github.com/sells-group/attribution-cli/internal/pipeline"
)

var (
	resolveURL        string
	resolvePage       string
	resolveFile       string
	resolveEngines    []string
	resolveMaxResults int
	resolveTimeout    int
	resolveKeyIndex   int
	resolveFormat     string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve attribution for a single image",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolvePage != "" {
			env, err := initPipeline("resolve")
			if err != nil {
				return err
			}
			defer env.Close()

			res, err := env.Pipeline.LookupPage(cmd.Context(), resolvePage)
			if err != nil {
				return eris.Wrap(err, "lookup page")
			}
			return writeOutput(cmd.OutOrStdout(), resolveFormat, res)
		}

		img, err := imageFromFlags(resolveURL, resolveFile)
		if err != nil {
			return err
		}

		env, err := initPipeline("resolve")
		if err != nil {
			return err
		}
		defer env.Close()

		opts := requestOptions(resolveEngines, resolveMaxResults, resolveTimeout, resolveKeyIndex)
		result, err := env.Pipeline.Resolve(cmd.Context(), img, opts)
		if err != nil {
			return eris.Wrap(err, "resolve")
		}
		return writeOutput(cmd.OutOrStdout(), resolveFormat, result)
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveURL, "url", "", "image URL")
	resolveCmd.Flags().StringVar(&resolveFile, "file", "", "local image file")
	resolveCmd.Flags().StringVar(&resolvePage, "page", "", "provider photo page to read attribution from directly")
	resolveCmd.Flags().StringSliceVar(&resolveEngines, "engines", nil, "search engines to query (default from config)")
	resolveCmd.Flags().IntVar(&resolveMaxResults, "max-results", 0, "maximum candidates returned (default from config)")
	resolveCmd.Flags().IntVar(&resolveTimeout, "timeout", 0, "search timeout in seconds (default from config)")
	resolveCmd.Flags().IntVar(&resolveKeyIndex, "key-index", -1, "explicit API key index")
	resolveCmd.Flags().StringVar(&resolveFormat, "format", "json", "output format: json or yaml")
	resolveCmd.MarkFlagsMutuallyExclusive("url", "file", "page")
	resolveCmd.MarkFlagsOneRequired("url", "file", "page")
	rootCmd.AddCommand(resolveCmd)
}

// imageFromFlags builds the image reference from --url or --file. Files
// must decode as a supported image.
func imageFromFlags(url, file string) (model.ImageRef, error) {
	if file == "" {
		return model.ImageRef{URL: url}, nil
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return model.ImageRef{}, eris.Wrapf(err, "read image %s", file)
	}
	if _, err := metadata.Validate(data); err != nil {
		return model.ImageRef{}, err
	}
	return model.ImageRef{Bytes: data}, nil
}

// requestOptions maps CLI and HTTP parameters onto pipeline options. A
// negative key index means none was given.
func requestOptions(engines []string, maxResults, timeoutSecs, keyIndex int) pipeline.Options {
	opts := pipeline.Options{
		Engines:    engines,
		MaxResults: maxResults,
	}
	if timeoutSecs > 0 {
		opts.Timeout = time.Duration(timeoutSecs) * time.Second
	}
	if keyIndex >= 0 {
		opts.KeyIndex = &keyIndex
	}
	return opts
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return eris.Wrap(err, "encode yaml")
		}
		return enc.Close()
	case "json", "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(v), "encode json")
	default:
		return eris.Errorf("unknown format %q", format)
	}
}
