package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogq/internal/domain/query"
	searchuc "github.com/kailas-cloud/catalogq/internal/usecase/search"
)

// NewExplainCommand creates the explain command.
func NewExplainCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <query>",
		Short: "Show tokens, clauses, diagnostics and predicates of a query",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			vocab, err := rootOpts.vocabulary()
			if err != nil {
				return err
			}
			ex := searchuc.Explain(queryArg(args), vocab)
			if rootOpts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), ex)
			}
			return writeExplanation(cmd.OutOrStdout(), ex)
		},
	}
}

// queryArg returns the raw query; no argument is the empty (browse) query.
func queryArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func writeExplanation(w io.Writer, ex searchuc.Explanation) error {
	var b strings.Builder
	fmt.Fprintf(&b, "query: %q\n", ex.Raw)

	b.WriteString("tokens:\n")
	for _, t := range ex.Tokens {
		if t.Kind == query.KindEOF {
			continue
		}
		fmt.Fprintf(&b, "  %-3d %-9s %q\n", t.Pos, t.Kind, t.Raw)
	}

	b.WriteString("clauses:\n")
	for _, c := range ex.Query.Clauses() {
		kind := "field"
		if c.IsFreeText() {
			kind = "text"
		}
		fmt.Fprintf(&b, "  %-3d %-5s %s\n", c.Pos(), kind, c)
	}

	if diags := ex.Query.Diagnostics(); len(diags) > 0 {
		b.WriteString("diagnostics:\n")
		for _, d := range diags {
			fmt.Fprintf(&b, "  %-3d %-22s %q\n", d.Pos, d.Reason, d.Text)
		}
	}

	b.WriteString("predicates:\n")
	for _, f := range ex.Predicates.Fields() {
		p, _ := ex.Predicates.Get(f)
		fmt.Fprintf(&b, "  %-11s %-8s %s\n", f, p.Operator(), quoteAll(p.Values()))
	}

	fmt.Fprintf(&b, "signature: %s\n", ex.Signature)
	_, err := io.WriteString(w, b.String())
	return err
}

func quoteAll(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = fmt.Sprintf("%q", v)
	}
	return strings.Join(quoted, " | ")
}
