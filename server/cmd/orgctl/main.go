package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/orgpulse/orgpulse/server/internal/rpc"
)

const (
	defaultAPIKeyHeader = "x-api-key"
	defaultMaxDepth     = 64
)

func defaultServer() string {
	if s := os.Getenv("ORGPULSE_SERVER"); s != "" {
		return s
	}
	return "localhost:50051"
}

// options holds the persistent flags and the client they select.
type options struct {
	server     string
	file       string
	apiKey     string
	keyHeader  string
	timeout    time.Duration
	jsonOutput bool

	client orgClient
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "orgctl <command>",
		Short:         "Query organizational health from an orgpulse server or a local org file",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.file != "" {
				opts.client = newLocalClient(opts.file, defaultMaxDepth)
				return nil
			}
			c, err := rpc.Dial(opts.server, opts.keyHeader, opts.apiKey)
			if err != nil {
				return fmt.Errorf("failed to connect to server: %w", err)
			}
			opts.client = c
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.client != nil {
				opts.client.Close()
			}
		},
	}

	f := root.PersistentFlags()
	f.StringVar(&opts.server, "server", defaultServer(), "gRPC server address")
	f.StringVar(&opts.file, "file", "", "evaluate a local org document (YAML or JSON) instead of querying a server")
	f.StringVar(&opts.apiKey, "api-key", os.Getenv("ORGPULSE_API_KEY"), "API key sent to the server")
	f.StringVar(&opts.keyHeader, "api-key-header", defaultAPIKeyHeader, "metadata header carrying the API key")
	f.DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-request timeout")
	f.BoolVar(&opts.jsonOutput, "json", false, "output as JSON")

	root.AddCommand(
		newHeadcountCmd(opts),
		newDiagnosticsCmd(opts),
		newPerformanceCmd(opts),
		newUnitsCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
