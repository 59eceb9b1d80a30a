package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/quill/internal/engine/classifier"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the error-type labels in rule order",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, r := range classifier.New(nil).Rules() {
			fmt.Fprintf(cmd.OutOrStdout(), "%-16s %s\n", r.Label, r.Desc)
		}
		return nil
	},
}
