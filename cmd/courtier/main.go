package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "courtier",
	Short: "Courtier — multi-tenant CRM backend",
	Long:  "Courtier is a multi-tenant CRM backend: organizations with role-based membership, invitation tokens for joining, and leads with a full audit history of every change.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: configs/courtier.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
