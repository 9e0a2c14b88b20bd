// Package cli implements the policyaudit command-line interface.  Commands
// talk to a running server through the pkg/client SDK; local pipeline wiring
// lives in cmd/apiserver.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/verilex/policyaudit/pkg/client"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// rootOptions holds the global flags shared by every subcommand.
type rootOptions struct {
	serverAddr string
	output     string
	timeout    time.Duration
	verbose    bool
}

func (o *rootOptions) newClient() (*client.Client, error) {
	opts := []client.Option{client.WithTimeout(o.timeout)}
	if o.verbose {
		opts = append(opts, client.WithLogger(stderrLogger{}))
	}
	return client.NewClient(o.serverAddr, opts...)
}

type stderrLogger struct{}

func (stderrLogger) Debugf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
func (stderrLogger) Infof(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}
func (stderrLogger) Errorf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "policyaudit",
		Short:         "Check privacy policies for legal compliance coverage",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.serverAddr, "server", envOr("POLICYAUDIT_SERVER", "http://localhost:8080"), "server base URL")
	pf.StringVarP(&opts.output, "output", "o", "table", "output format: table|json")
	pf.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "request timeout")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(
		newAnalyzeCommand(opts),
		newDiagnoseCommand(opts),
		newArticlesCommand(opts),
		newReloadCommand(opts),
	)
	return cmd
}

// Execute runs the CLI.  A .env file in the working directory is loaded
// first so local setups can keep POLICYAUDIT_SERVER out of the shell.
func Execute() {
	_ = godotenv.Load()
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// readDocument loads the document text for analysis: a file path, or stdin
// when path is "-".
func readDocument(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	return string(data), nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
