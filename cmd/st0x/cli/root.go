package cli

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// Execute creates the root command tree and runs it.
func Execute(version, commit, date string) error {
	rootCmd := newRootCmd(version, commit, date)
	return rootCmd.Execute()
}

func newRootCmd(version, commit, date string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "st0x",
		Short: "st0x REST API server and key management",
		Long: `st0x: the orderbook REST API server.

Every route except the health check requires an API key presented via HTTP
Basic auth (key ID as username, secret as password). Keys are minted and
managed with the 'keys' subcommands; the secret is shown once at creation
and can never be recovered.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./st0x.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "data directory for the SQLite database (default: ~/.st0x)")

	cobra.OnInitialize(initConfig)

	cmd.AddCommand(newServeCmd(version))
	cmd.AddCommand(newVersionCmd(version, commit, date))
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newSettingsCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("st0x")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME/.st0x")
	}

	viper.SetEnvPrefix("ST0X")
	viper.AutomaticEnv()
	viper.ReadInConfig() // Ignore error - config file is optional
}
