// Command busrpc is the reference process host for this library: a
// "consume" subcommand runs the worker side bound to the Users and Health
// services, and a "produce" subcommand issues one RPC call and prints the
// reply, useful for poking a running worker by hand.
package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "busrpc",
	Short: "Request/reply RPC over a message broker.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "The env file to read.")
	rootCmd.AddCommand(consumeCmd, produceCmd)
}

func initConfig() {
	if err := godotenv.Load(envFile); err != nil {
		slog.Debug("no env file loaded", "error", err.Error())
	}
}
