package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var varsCmd = &cobra.Command{
	Use:   "vars",
	Short: "Manage shared template variables",
	Long: `Manage the shared variables referenced as {{key}} in templates.

Setting a variable only affects documents generated afterwards. Use
'contentmill bulk-update start' to change a value and re-render the
published documents that used the old one.

Examples:
  contentmill vars list
  contentmill vars set supportEmail help@example.com`,
}

var varsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List template variables",
	RunE: func(cmd *cobra.Command, args []string) error {
		vars, err := dbClient.ListVariables(cmd.Context())
		if err != nil {
			return err
		}
		if len(vars) == 0 {
			fmt.Println("No variables set.")
			return nil
		}
		width := 0
		for _, v := range vars {
			width = max(width, len(v.Key))
		}
		for _, v := range vars {
			fmt.Printf("%-*s  %s\n", width, v.Key, v.Value)
		}
		return nil
	},
}

var varsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a template variable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.TrimSpace(args[0])
		if key == "" {
			return fmt.Errorf("variable key is required")
		}
		if err := dbClient.SetVariable(cmd.Context(), key, args[1]); err != nil {
			return err
		}
		fmt.Printf("Set %s = %q\n", key, args[1])
		return nil
	},
}

func init() {
	varsCmd.AddCommand(varsListCmd)
	varsCmd.AddCommand(varsSetCmd)
}
