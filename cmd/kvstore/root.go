// Command kvstore inspects and edits kvstore environments from the
// shell. Flags can also come from KVSTORE_-prefixed environment
// variables (e.g. KVSTORE_PATH), including via .env files.
package main

import (
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/andreyvit/kvstore"
)

var rootCmd = &cobra.Command{
	Use:           "kvstore",
	Short:         "Inspect and edit embedded key-value environments",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return viper.BindPFlags(cmd.Flags())
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("path", ".", "environment directory")
	rootCmd.PersistentFlags().String("database", "", "named database (empty for the default database)")

	rootCmd.AddCommand(getCmd, putCmd, hasCmd, deleteCmd, listCmd, dbsCmd, statsCmd)
}

func initConfig() {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load(".env")

	viper.SetEnvPrefix("kvstore")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func openDB() (*kvstore.Database, error) {
	return kvstore.GetOrCreate(viper.GetString("path"), viper.GetString("database"))
}
