package main

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"yatube/cmd/group"
	"yatube/cmd/migrate"
	"yatube/cmd/serve"
)

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "yatube",
		Short:         "Yatube blog server and admin tools",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serve.NewServeCommand())
	rootCmd.AddCommand(migrate.NewMigrateCommand())
	rootCmd.AddCommand(group.NewGroupCommand())
	return rootCmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}
