package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/zjrosen/shine/internal/config"
)

var configInitForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write a commented default config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := filepath.Join(config.DefaultConfigDir(), "config.yaml")
		if len(args) == 1 {
			path = args[0]
		}
		if _, err := os.Stat(path); err == nil && !configInitForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefaultConfig(path); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
		return nil
	},
}

var configColorCmd = &cobra.Command{
	Use:     "color <style> <hex>",
	Short:   "Override the terminal colour of a highlight style",
	Example: `  shine config color comment "#6A9955"`,
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := configPath()
		if err := config.SaveColor(path, args[0], args[1]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "set output.colors.%s = %s in %s\n", args[0], args[1], path)
		return nil
	},
}

var configLanguageCmd = &cobra.Command{
	Use:   "default-language <language>",
	Short: "Set the language used when none can be detected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		def, err := reg.Lookup(args[0])
		if err != nil {
			return fmt.Errorf("%w (see 'shine languages')", err)
		}

		path := configPath()
		if err := config.SaveDefaultLanguage(path, def.Name); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "set languages.default = %s in %s\n", def.Name, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configColorCmd, configLanguageCmd)
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

// configPath is the file that was loaded, or the user config path.
func configPath() string {
	if used := viper.ConfigFileUsed(); used != "" {
		return used
	}
	return filepath.Join(config.DefaultConfigDir(), "config.yaml")
}
