package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newSchemaCmd(configPath *string) *cobra.Command {
	var input string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Show the schema sqlpilot prompts with",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, *configPath, appOptions{})
			if err != nil {
				return err
			}
			defer a.Close()

			if a.schema == nil {
				return errors.New("no schema source: set schema_file or database.dsn")
			}

			if input != "" {
				excerpt, err := a.schema.Preview(ctx, input)
				if err != nil {
					return err
				}
				if excerpt == "" {
					fmt.Println("No relevant tables.")
					return nil
				}
				fmt.Println(excerpt)
				return nil
			}

			sch, err := a.schema.Schema(ctx)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tCOLUMNS\tPRIMARY KEY\tFOREIGN KEYS")
			for _, t := range sch.Tables {
				fks := make([]string, 0, len(t.ForeignKeys))
				for _, fk := range t.ForeignKeys {
					fks = append(fks, fmt.Sprintf("%s->%s.%s", fk.Column, fk.RefTable, fk.RefColumn))
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", t.Name,
					strings.Join(t.Columns, ", "), strings.Join(t.PrimaryKey, ", "), strings.Join(fks, ", "))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "show only the excerpt selected for this request")
	return cmd
}
