package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// defaultStateFile holds the persisted session store next to the config.
const defaultStateFile = "session.json"

// Config represents the configuration for the SenseHel CLI.
type Config struct {
	// Version of the configuration file format
	Version string `yaml:"version"`
	// ServerURL is the base URL of the SenseHel API
	ServerURL string `yaml:"server_url" validate:"required,url"`
	// StatePath is where the persisted session store lives. Defaults to a
	// file next to the config.
	StatePath string `yaml:"state_path,omitempty"`
}

var config *Config

var validate = validator.New(validator.WithRequiredStructEnabled())

// GetDefaultConfigPath returns the default path for the config file,
// using the OS-specific config directory (e.g. ~/.config/sensehel on Linux).
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "sensehel", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file. Environment
// variables (optionally from a .env file) override the file contents.
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}

	// .env is optional
	godotenv.Load()
	if url := os.Getenv("SENSEHEL_SERVER_URL"); url != "" {
		c.ServerURL = url
	}

	c.ServerURL = MorphServer(c.ServerURL)
	if c.StatePath == "" {
		c.StatePath = filepath.Join(filepath.Dir(file), defaultStateFile)
	}

	if err := validate.Struct(&c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the configuration to the specified file.
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	if err := os.MkdirAll(filepath.Dir(file), os.ModePerm); err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	if err := os.WriteFile(file, yamlStr, os.FileMode(0600)); err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}
	return nil
}

// MorphServer ensures the server URL is properly formatted:
// https:// is assumed when no scheme is given, trailing slashes dropped.
func MorphServer(server string) string {
	if server == "" {
		return server
	}
	server = strings.TrimRight(server, "/")
	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "https://" + server
	}
	return server
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like the server connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			return setServerConfig(serverFlag)
		}
		cmd.Help()
		return nil
	},
}

func init() {
	configCmd.Flags().String("server", "", "Set the server base URL (e.g. https://sensehel.example.com/api)")
	rootCmd.AddCommand(configCmd)
}

// setServerConfig writes a fresh configuration pointing at the given server.
func setServerConfig(server string) error {
	configPath := configFile
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	cfg := &Config{
		Version:   "0.1.0",
		ServerURL: MorphServer(server),
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid server URL: %w", err)
	}

	if err := cfg.WriteConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"server":      cfg.ServerURL,
			"config_file": configPath,
		})
	} else {
		fmt.Printf("Server configured: %s\n", cfg.ServerURL)
		fmt.Printf("Config file: %s\n", configPath)
	}
	return nil
}
