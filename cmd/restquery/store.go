package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/smarter-day/restquery"
	"github.com/smarter-day/restquery/firestoredb"
	"github.com/smarter-day/restquery/memdb"
	"github.com/smarter-day/restquery/mongodb"
	"github.com/spf13/viper"
)

// openModel builds the restquery.Model selected by the "store" setting. The
// returned close function releases the store connection.
func openModel(ctx context.Context) (restquery.Model, func(), error) {
	collection := viper.GetString("collection")
	if collection == "" {
		return nil, nil, fmt.Errorf("collection is required")
	}
	refs, err := parseRefs(viper.GetStringSlice("ref"))
	if err != nil {
		return nil, nil, err
	}

	switch store := viper.GetString("store"); store {
	case "mongodb":
		conn, err := mongodb.Connect(viper.GetString("mongodb.uri"), viper.GetString("mongodb.database"))
		if err != nil {
			return nil, nil, err
		}
		model := conn.Model(collection)
		for field, target := range refs {
			model.Ref(field, target)
		}
		return model, func() { _ = conn.Close(context.Background()) }, nil

	case "firestore":
		conn, err := firestoredb.Connect(ctx, viper.GetString("firestore.project"))
		if err != nil {
			return nil, nil, err
		}
		model := firestoredb.NewModel(conn, collection)
		for field, target := range refs {
			model.Ref(field, target)
		}
		return model, func() { _ = conn.Close() }, nil

	case "memory":
		db := memdb.New()
		if err := seedMemory(db, viper.GetString("memory.seed")); err != nil {
			return nil, nil, err
		}
		coll := db.Collection(collection)
		for field, target := range refs {
			coll.Ref(field, target)
		}
		return coll, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store %q (want mongodb, firestore or memory)", store)
	}
}

// parseRefs reads "field=collection" pairs.
func parseRefs(pairs []string) (map[string]string, error) {
	refs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		field, target, ok := strings.Cut(pair, "=")
		if !ok || field == "" || target == "" {
			return nil, fmt.Errorf("invalid ref %q, want field=collection", pair)
		}
		refs[field] = target
	}
	return refs, nil
}

// seedMemory loads {"collection": [documents...]} from path.
func seedMemory(db *memdb.Store, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read seed: %w", err)
	}
	var seed map[string][]restquery.Document
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed: %w", err)
	}
	for name, docs := range seed {
		if _, err := db.Collection(name).Insert(docs...); err != nil {
			return err
		}
	}
	return nil
}
