package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/shine/internal/lang"
)

var languagesJSON bool

// languageInfo is the JSON form of one registry entry.
type languageInfo struct {
	Name       string   `json:"name"`
	Aliases    []string `json:"aliases,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	States     int      `json:"states"`
	Patterns   int      `json:"patterns"`
	Source     string   `json:"source"`
}

var languagesCmd = &cobra.Command{
	Use:   "languages",
	Short: "List available languages",
	Long: `List the built-in languages and those loaded from the languages directory.

Examples:
  shine languages
  shine languages --json | jq '.[].name'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := loadRegistry()
		if err != nil {
			return err
		}
		infos, err := languageInfos(reg)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if languagesJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(infos)
		}
		for _, info := range infos {
			fmt.Fprintf(out, "%-12s %-24s %-24s %s\n", info.Name,
				strings.Join(info.Aliases, ","), strings.Join(info.Extensions, ","), info.Source)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(languagesCmd)
	languagesCmd.Flags().BoolVar(&languagesJSON, "json", false, "output as JSON")
}

func languageInfos(reg *lang.Registry) ([]languageInfo, error) {
	infos := make([]languageInfo, 0, reg.Len())
	for _, name := range reg.Names() {
		def, err := reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		infos = append(infos, languageInfo{
			Name:       def.Name,
			Aliases:    def.Aliases,
			Extensions: def.Extensions,
			States:     len(def.States),
			Patterns:   def.PatternCount(),
			Source:     def.Source,
		})
	}
	return infos, nil
}
