package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
)

func newManCmd(rootCmd *cobra.Command) *cobra.Command {
	return &cobra.Command{
		Use:                   "man",
		Short:                 "Generate man pages",
		SilenceUsage:          true,
		Hidden:                true,
		DisableFlagsInUseLine: true,
		Example:               "vocalprep man . && cat vocalprep.1",
		Args:                  cobra.ExactArgs(1),
		ValidArgsFunction:     cobra.NoFileCompletions,
		Annotations:           map[string]string{skipConfig: "true"},
		RunE: func(_ *cobra.Command, args []string) error {
			return doc.GenManTree(rootCmd, nil, args[0])
		},
	}
}
