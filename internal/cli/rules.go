package cli

import (
	"github.com/spf13/cobra"

	"github.com/hupe1980/meetmesh/priority"
)

func NewRulesCmd(deps *Dependencies) *cobra.Command {
	var rulesPath string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Print the effective priority rule table as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			table, err := loadRules(rulesPath)
			if err != nil {
				return err
			}

			data, err := table.Marshal()
			if err != nil {
				return err
			}

			_, err = deps.Out.Write(data)
			return err
		},
	}

	cmd.Flags().StringVar(&rulesPath, "rules", "", "rule table YAML (defaults to the built-in rules)")

	return cmd
}

func loadRules(path string) (priority.RuleTable, error) {
	if path == "" {
		return priority.DefaultRules(), nil
	}

	return priority.LoadRules(path)
}
