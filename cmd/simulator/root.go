package main

import (
	"log"
	"os"
	"path"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	simconfig "github.com/RobertSloan22/Simulated-OBD2-UDS/config"
)

var configFile string

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default $HOME/.simulated-obd2-uds.yaml)")
	simconfig.BindFlags(rootCmd.PersistentFlags())
}

var rootCmd = &cobra.Command{
	Use:           "simulator",
	Short:         "A simulated OBD-II/UDS diagnostic network: multiple ECUs on a virtual CAN bus.",
	SilenceErrors: true,
	RunE:          runSimulator,
}

func initConfig() {
	if configFile != "" {
		viper.SetConfigFile(path.Base(configFile))
		viper.AddConfigPath(path.Dir(configFile))
	} else {
		home, err := homedir.Dir()
		if err != nil {
			log.Fatalf("finding home directory: %v\n", err)
		}
		viper.AddConfigPath(home)
		viper.SetConfigName(".simulated-obd2-uds")
		viper.SetConfigType("yaml")
	}
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
			log.Fatalf("reading config file: %v\n", err)
		}
	}
	presetRequiredFlags(rootCmd)
}

func presetRequiredFlags(cmd *cobra.Command) {
	viper.BindPFlags(cmd.PersistentFlags())
	cmd.PersistentFlags().VisitAll(func(f *pflag.Flag) {
		if viper.IsSet(f.Name) && viper.GetString(f.Name) != "" {
			cmd.PersistentFlags().Set(f.Name, viper.GetString(f.Name))
		}
	})
}
