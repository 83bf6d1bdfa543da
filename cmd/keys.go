package main

import (
	"github.com/spf13/cobra"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Show API key pool sizes and usage",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initPipeline("resolve")
		if err != nil {
			return err
		}
		defer env.Close()
		return writeOutput(cmd.OutOrStdout(), "json", env.KeyStats())
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
