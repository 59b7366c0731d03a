package cmd

import (
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/searchbridge/internal/errors"
	"github.com/Aman-CERP/searchbridge/pkg/searchbridge"
)

func newSchemaCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the compiled schema",
		Long: `Show the schema of the configured index with the id of every field.

With --file, compile a schema descriptor without touching any index; use it
to check a schema before creating an index from it.`,
		Example: `  searchbridge schema
  searchbridge schema --file schema.json --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := schemaFor(a, file)
			if err != nil {
				return err
			}
			return printSchema(cmd, a, s)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Compile this schema descriptor instead of reading the index")

	return cmd
}

func schemaFor(a *app, file string) (*searchbridge.Schema, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, errors.ConfigError("failed to read schema file "+file, err)
		}
		return searchbridge.ParseSchema(data)
	}
	idx, err := a.openIndex(false)
	if err != nil {
		return nil, err
	}
	defer idx.Release()
	return idx.Schema(), nil
}

func printSchema(cmd *cobra.Command, a *app, s *searchbridge.Schema) error {
	out := a.out(cmd)
	if out.JSON() {
		return out.Encode(s)
	}
	rows := make([][]string, 0, len(s.Fields()))
	for _, f := range s.Fields() {
		rows = append(rows, fieldRow(f))
	}
	out.Table([]string{"ID", "NAME", "TYPE", "FLAGS", "TOKENIZER"}, rows)
	return nil
}

func fieldRow(f searchbridge.Field) []string {
	var flags []string
	if f.Stored {
		flags = append(flags, "stored")
	}
	if f.Indexed {
		flags = append(flags, "indexed")
	}
	if f.Fast {
		flags = append(flags, "fast")
	}
	tokenizer := ""
	if f.Type == searchbridge.FieldText {
		tokenizer = f.TokenizerName()
	}
	return []string{strconv.FormatUint(uint64(f.ID), 10), f.Name, string(f.Type), strings.Join(flags, ","), tokenizer}
}
