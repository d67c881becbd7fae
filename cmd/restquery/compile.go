package main

import (
	"fmt"

	"github.com/smarter-day/restquery"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var compileCmd = &cobra.Command{
	Use:   "compile",
	Short: "Print the query the options compile to, as MongoDB extended JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := loadOptions(cmd.InOrStdin())
		if err != nil {
			return err
		}
		id, opts, err := resolveTarget(opts)
		if err != nil {
			return err
		}

		q, err := restquery.Compile(id, opts)
		if err != nil {
			logger.Error("compile failed", "error", err)
			return err
		}
		out, err := bson.MarshalExtJSONIndent(q.BSON(), false, false, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to render query: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return nil
	},
}
