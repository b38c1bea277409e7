package cmd

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/Laisky/errors/v2"
	gconfig "github.com/Laisky/go-config/v2"
	"github.com/Laisky/zap"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/Laisky/tamerlane/library/log"
	"github.com/Laisky/tamerlane/library/search"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var searchCMD = &cobra.Command{
	Use:   "search <service-url> <query>",
	Short: "Query a IIIF content search service",
	Long: `Query a IIIF content search service and print the matching snippets as JSON.

Example:
  tamerlane search https://example.org/iiif/search "king" --lang en`,
	Args: cobra.ExactArgs(2),
	PreRun: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		if err := initialize(ctx, cmd); err != nil {
			log.Logger.Panic("init", zap.Error(err))
		}
	},
	Run: func(cmd *cobra.Command, args []string) {
		if err := runSearch(cmd.Context(), cmd.OutOrStdout(),
			args[0], args[1], gconfig.Shared.GetString("lang")); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

// runSearch prints the snippets matching query as a JSON array to out.
// Logs never go to out.
func runSearch(ctx context.Context, out io.Writer, serviceURL, query, lang string) error {
	fetcher, err := newFetcher()
	if err != nil {
		return err
	}

	agg, err := newAggregator(fetcher)
	if err != nil {
		return errors.WithStack(err)
	}

	snippets, err := agg.SearchAnnotations(ctx, search.BuildQueryURL(serviceURL, query))
	if err != nil {
		return errors.Wrap(err, "search annotations")
	}
	snippets = search.FilterByLanguage(snippets, lang)
	if snippets == nil {
		snippets = []search.Snippet{}
	}

	payload, err := json.MarshalIndent(snippets, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal snippets")
	}

	_, err = fmt.Fprintln(out, string(payload))
	return errors.WithStack(err)
}

func init() {
	rootCMD.AddCommand(searchCMD)
	searchCMD.Flags().String("lang", "", "only keep snippets in this language")
}
