package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jingkaihe/mosaic/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Long:  `Print the version information of mosaic in JSON format.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		json, err := version.Get().JSON()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), json)
		return nil
	},
}
