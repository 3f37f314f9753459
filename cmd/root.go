package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var cfgFile string
var logger *zap.SugaredLogger
var verbose bool

var rootCmd = &cobra.Command{
	Use:   "joomprobe",
	Short: "Probe a Joomla installation for installed components and common misconfigurations",
	Long: `joomprobe enumerates installed Joomla components from a fixed signature
database and flags common misconfigurations: open directory listings, exposed
README/manifest files, missing security headers and version disclosure.

All probes come from the static signature database; joomprobe never crawls,
authenticates or exploits. Scan only targets you are authorized to test.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init config
		if cfgFile != "" {
			viper.SetConfigFile(cfgFile)
		} else {
			viper.AddConfigPath("$HOME")
			viper.SetConfigName(".joomprobe")
			viper.SetConfigType("yaml")
		}
		viper.SetEnvPrefix("JOOMPROBE")
		viper.AutomaticEnv()
		_ = viper.ReadInConfig()

		// init logger
		var (
			l   *zap.Logger
			err error
		)
		if verbose {
			l, err = zap.NewDevelopment()
		} else {
			cfg := zap.NewProductionConfig()
			cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
			l, err = cfg.Build()
		}
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l.Sugar()

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.joomprobe.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}
