// Command contactwriter is a CLI front-end for the write path: it wires
// cobra's command tree, viper's layered config and the sqlite-backed
// writer together the way beads' cmd/bd wires its own store to
// its command tree in main.go.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "contactwriter",
		Short: "Local contact database write path",
	}
	root.PersistentFlags().String("db", "", "sqlite database path (default \"contactwriter.db\")")
	root.PersistentFlags().String("config", "contactwriter.yaml", "config file path")
	root.PersistentFlags().Bool("no-aggregation", false, "disable the matcher/composer aggregation pipeline")
	root.PersistentFlags().Int("match-threshold", 0, "override the matcher's score threshold (0 = use config default)")

	root.AddCommand(newSaveCmd())
	root.AddCommand(newRemoveCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newRegenCmd())
	root.AddCommand(newRelationshipCmd())
	root.AddCommand(newIdentityCmd())
	return root
}
