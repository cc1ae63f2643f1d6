package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogq/internal/domain/query"
	"github.com/kailas-cloud/catalogq/internal/domain/search/filter"
)

// SignatureResult is the JSON form of the signature command.
type SignatureResult struct {
	Query     string `json:"query"`
	Signature string `json:"signature"`
}

// NewSignatureCommand creates the signature command.
func NewSignatureCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "signature <query>...",
		Short: "Print the cache signature of each query",
		Long: `Print the cache signature of each query.

Queries with equal signatures share one cached result page.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := rootOpts.vocabulary()
			if err != nil {
				return err
			}
			results := make([]SignatureResult, len(args))
			for i, raw := range args {
				preds := filter.Translate(query.ParseString(raw, vocab))
				results[i] = SignatureResult{Query: raw, Signature: preds.Signature()}
			}

			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), results)
			}
			for _, r := range results {
				if _, err := fmt.Fprintln(cmd.OutOrStdout(), r.Signature); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
