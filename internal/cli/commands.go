// Package cli implements the sensehel command line interface: the UI shell
// over the session gateway, apartment cache, and subscription workflow.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	jsonOutput bool
	configFile string
)

var okLabel = color.New(color.FgGreen)
var errorLabel = color.New(color.FgRed)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "sensehel [command] [flags]",
	Short: "SenseHel CLI - a dashboard for your apartment sensors and services",
	Long: `SenseHel CLI is the resident's dashboard for a smart apartment.
It shows sensor readings and lets you browse, subscribe to, and unsubscribe
from third-party services that consume your apartment's sensor data.

Examples:
  # Log in
  sensehel login --username pauli

  # Show current sensor readings
  sensehel sensors

  # Browse offered services
  sensehel services

  # Subscribe to a service
  sensehel subscribe 3 --attr sensehel/temperature --consent`,
	PersistentPreRun: preRunHandlePersistents,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "", "", "Path to configuration file to override default")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")

	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newLoginCmd())
	rootCmd.AddCommand(newLogoutCmd())
	rootCmd.AddCommand(newSensorsCmd())
	rootCmd.AddCommand(newServicesCmd())
	rootCmd.AddCommand(newSubscriptionsCmd())
	rootCmd.AddCommand(newSubscribeCmd())
	rootCmd.AddCommand(newUnsubscribeCmd())
	rootCmd.AddCommand(newRevokeCmd())
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true

	err := rootCmd.Execute()
	if err != nil {
		if jsonOutput {
			printJSON(map[string]string{"error": err.Error()})
		} else {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// preRunHandlePersistents loads configuration before command execution.
// Commands that manage configuration itself run without one.
func preRunHandlePersistents(cmd *cobra.Command, args []string) {
	if configFile == "" {
		var err error
		configFile, err = GetDefaultConfigPath()
		if err != nil {
			errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	skipConfig := false
	c := cmd
	for c != nil {
		if c.Name() == "config" || c.Name() == "version" {
			skipConfig = true
			break
		}
		c = c.Parent()
	}

	if !skipConfig {
		if err := LoadConfig(configFile); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				fmt.Println("SenseHel config file not found. Configure the server with \"sensehel config --server <url>\" first.")
				os.Exit(1)
			}
			fmt.Printf("%s\n", err.Error())
			os.Exit(1)
		}
	}
}

// newVersionCmd creates and returns a new version command
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of sensehel-cli",
		Run: func(cmd *cobra.Command, args []string) {
			configPath, err := GetDefaultConfigPath()
			if err != nil {
				configPath = "unknown"
			}

			if jsonOutput {
				printJSON(map[string]string{
					"version":     getCLIVersion(),
					"config_file": configPath,
				})
			} else {
				cmd.Printf("sensehel CLI %s\n", getCLIVersion())
				cmd.Printf("Config file: %s\n", configPath)
			}
		},
	}
}

// printJSON prints the given map as JSON to stdout
func printJSON(data interface{}) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(jsonData))
}

// getCLIVersion returns the current CLI version
func getCLIVersion() string {
	return "v0.2.0"
}
