// Package cli implements catalogctl, an offline inspector that shows how a
// raw query is tokenized, parsed and translated.
package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/catalogq/internal/config"
	"github.com/kailas-cloud/catalogq/internal/domain/query"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format    string   // "json" | "text"
	Fields    []string // name=operator pairs
	Config    string
	Namespace string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for catalogctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "catalogctl",
		Short: "Inspect catalog search queries",
		Long: `Inspect how catalog search queries are understood.

The field vocabulary comes from --fields, from a namespace of a config
file (--config, --namespace), or defaults to tag, level, language and title.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringSliceVar(&opts.Fields, "fields", nil,
		"field vocabulary as name=equals|contains, e.g. tag=equals,title=contains")
	cmd.PersistentFlags().StringVar(&opts.Config, "config", "", "config file to read namespace fields from")
	cmd.PersistentFlags().StringVarP(&opts.Namespace, "namespace", "n", config.DefaultNamespace,
		"namespace whose fields apply with --config")

	cmd.AddCommand(NewExplainCommand(opts))
	cmd.AddCommand(NewSignatureCommand(opts))

	return cmd
}

// vocabulary resolves the field vocabulary the flags select.
func (o *RootOptions) vocabulary() (query.Vocabulary, error) {
	if len(o.Fields) > 0 {
		return parseFields(o.Fields)
	}
	if o.Config == "" {
		return query.DefaultVocabulary(), nil
	}

	cfg, err := config.LoadFile(o.Config)
	if err != nil {
		return query.Vocabulary{}, err
	}
	vocabs, err := cfg.Vocabularies()
	if err != nil {
		return query.Vocabulary{}, err
	}
	v, ok := vocabs[o.Namespace]
	if !ok {
		return query.Vocabulary{}, fmt.Errorf("namespace %q not found in %s (have %s)",
			o.Namespace, o.Config, strings.Join(cfg.NamespaceNames(), ", "))
	}
	return v, nil
}

func parseFields(pairs []string) (query.Vocabulary, error) {
	fields := make(map[string]query.Operator, len(pairs))
	for _, pair := range pairs {
		name, op, ok := strings.Cut(pair, "=")
		if !ok {
			return query.Vocabulary{}, fmt.Errorf("field %q: want name=equals|contains", pair)
		}
		fields[strings.TrimSpace(name)] = query.Operator(strings.ToLower(strings.TrimSpace(op)))
	}
	return query.NewVocabulary(fields)
}
