package main

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/smarter-day/restquery"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Compile the options and execute the query, printing the documents as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		opts, err := loadOptions(cmd.InOrStdin())
		if err != nil {
			return err
		}
		id, opts, err := resolveTarget(opts)
		if err != nil {
			return err
		}

		model, closeModel, err := openModel(ctx)
		if err != nil {
			return err
		}
		defer closeModel()

		reqLogger := logger.With("request_id", uuid.NewString(), "collection", viper.GetString("collection"))
		f := restquery.New(model, restquery.WithLogger(reqLogger))

		var runErr error
		cb := func(err error, docs []restquery.Document) {
			if err != nil {
				runErr = err
				return
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			runErr = enc.Encode(docs)
		}

		if id != "" {
			err = f.OneWithCallback(ctx, id, opts, cb)
		} else {
			err = f.ManyWithCallback(ctx, opts, cb)
		}
		if err != nil {
			return err
		}
		return runErr
	},
}

func init() {
	runCmd.Flags().String("store", "memory", "document store: mongodb, firestore or memory")
	runCmd.Flags().String("collection", "", "collection to query")
	runCmd.Flags().StringSlice("ref", nil, "reference declaration field=collection, repeatable")
	runCmd.Flags().String("mongodb-uri", "mongodb://localhost:27017", "MongoDB connection string")
	runCmd.Flags().String("mongodb-database", "test", "MongoDB database")
	runCmd.Flags().String("firestore-project", "", "Firestore project ID")
	runCmd.Flags().String("memory-seed", "", "JSON file of {collection: [documents]} for the memory store")

	_ = viper.BindPFlag("store", runCmd.Flags().Lookup("store"))
	_ = viper.BindPFlag("collection", runCmd.Flags().Lookup("collection"))
	_ = viper.BindPFlag("ref", runCmd.Flags().Lookup("ref"))
	_ = viper.BindPFlag("mongodb.uri", runCmd.Flags().Lookup("mongodb-uri"))
	_ = viper.BindPFlag("mongodb.database", runCmd.Flags().Lookup("mongodb-database"))
	_ = viper.BindPFlag("firestore.project", runCmd.Flags().Lookup("firestore-project"))
	_ = viper.BindPFlag("memory.seed", runCmd.Flags().Lookup("memory-seed"))
}
