package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreyvit/kvstore"
)

var getCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the value stored under a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		v, found, err := db.Get(args[0])
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%s: not found", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", v)
		return nil
	},
}

var putCmd = &cobra.Command{
	Use:   "put <key> [value]",
	Short: "Store a value under a key",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var raw string
		if len(args) == 2 {
			raw = args[1]
		}
		value, err := parseValue(viper.GetString("type"), raw, len(args) == 1)
		if err != nil {
			return err
		}
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Put(args[0], value)
	},
}

var hasCmd = &cobra.Command{
	Use:   "has <key>",
	Short: "Check whether a key exists",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		found, err := db.Has(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), found)
		if !found {
			return errNotFound
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <key>",
	Short: "Remove a key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Delete(args[0])
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List key-value pairs in ascending key order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		e, err := db.Enumerate(viper.GetString("from"), viper.GetString("to"))
		if err != nil {
			return err
		}
		for e.HasMore() {
			k, v, err := e.Next()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", k, v.Kind(), v)
		}
		return nil
	},
}

var dbsCmd = &cobra.Command{
	Use:   "dbs",
	Short: "List the named databases in the environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		names, err := db.Environment().Databases()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print storage statistics for the database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()
		st, err := db.Stats()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "keys\t%d\nleaf-inuse\t%d\ntotal-alloc\t%d\n",
			st.Keys, st.LeafInuse, st.TotalAlloc)
		return nil
	},
}

var errNotFound = errors.New("not found")

func init() {
	putCmd.Flags().String("type", "string", "value type: string, int, float, bool or null")
	listCmd.Flags().String("from", "", "inclusive lower bound (empty for none)")
	listCmd.Flags().String("to", "", "exclusive upper bound (empty for none)")
}

func parseValue(typ, raw string, omitted bool) (kvstore.Value, error) {
	if omitted {
		if typ != "null" && typ != "string" {
			return kvstore.Value{}, fmt.Errorf("value required for type %s", typ)
		}
		if typ == "null" {
			return kvstore.Null(), nil
		}
	}
	switch typ {
	case "string":
		return kvstore.Text(raw), nil
	case "int":
		i, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return kvstore.Value{}, fmt.Errorf("invalid int %q: %w", raw, err)
		}
		return kvstore.Int(i), nil
	case "float":
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return kvstore.Value{}, fmt.Errorf("invalid float %q: %w", raw, err)
		}
		return kvstore.Float(f), nil
	case "bool":
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return kvstore.Value{}, fmt.Errorf("invalid bool %q: %w", raw, err)
		}
		return kvstore.Bool(b), nil
	case "null":
		return kvstore.Null(), nil
	default:
		return kvstore.Value{}, fmt.Errorf("unknown value type %q", typ)
	}
}
