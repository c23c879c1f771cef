package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"sqlbridge/internal/bridge"
	"sqlbridge/internal/dialect"
)

var (
	cfgFile    string
	engineName string

	server       string
	database     string
	user         string
	password     string
	passwordFile string
)

var RootCmd = &cobra.Command{
	Use:   "sqlbridge",
	Short: "Run legacy Sybase-dialect SQL against Postgres or MySQL",
	Long: `sqlbridge translates SQL written for a retired Sybase server into the
dialect of a modern target engine and runs it over a managed connection:
temp-table syntax, exec calls, quoting, and the other legacy habits are
rewritten on the fly so old scripts keep working unchanged.`,
}

func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./sqlbridge.yaml)")
	RootCmd.PersistentFlags().StringVar(&engineName, "engine", "postgres", "target engine (postgres or mysql)")
	RootCmd.PersistentFlags().StringVar(&server, "server", "", "database server host")
	RootCmd.PersistentFlags().StringVar(&database, "database", "", "database name")
	RootCmd.PersistentFlags().StringVar(&user, "user", "", "database user")
	RootCmd.PersistentFlags().StringVar(&password, "password", "", "database password")
	RootCmd.PersistentFlags().StringVar(&passwordFile, "passwordfile", "", "file holding the password on its first line")

	viper.BindPFlag("database.engine", RootCmd.PersistentFlags().Lookup("engine"))
	viper.BindPFlag("database.server", RootCmd.PersistentFlags().Lookup("server"))
	viper.BindPFlag("database.name", RootCmd.PersistentFlags().Lookup("database"))
	viper.BindPFlag("database.user", RootCmd.PersistentFlags().Lookup("user"))
	viper.BindPFlag("database.password", RootCmd.PersistentFlags().Lookup("password"))
	viper.BindPFlag("database.passwordfile", RootCmd.PersistentFlags().Lookup("passwordfile"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("sqlbridge")
		viper.SetConfigType("yaml")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	}
}

// targetDialect resolves the configured engine.
func targetDialect() (dialect.Dialect, error) {
	return dialect.Get(viper.GetString("database.engine"))
}

// openManager builds the connection manager for the configured target. The
// physical connection opens lazily on the first statement.
func openManager() (*bridge.Manager, error) {
	d, err := targetDialect()
	if err != nil {
		return nil, err
	}
	return bridge.NewManager(d, resolveParams())
}
