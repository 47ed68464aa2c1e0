// Command storefront drives the product and board pages from a terminal.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	token   string
	timeout time.Duration
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "storefront",
	Short: "Inspect storefront pages against the shop backend",
	Long: `storefront renders the same views the HTTP API serves.

Product and board commands read REDIS_URL, UPSTREAM_BASE_URL and JWT_SECRET
from the environment or a .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&token, "token", "", "access token forwarded to the backend")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "operation timeout")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(productCmd, boardCmd, linksCmd)
	boardCmd.AddCommand(boardViewCmd, boardLikeCmd, boardDeleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
