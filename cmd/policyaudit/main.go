// The policyaudit binary is the command-line client for the analysis API.
package main

import "github.com/verilex/policyaudit/internal/interfaces/cli"

func main() {
	cli.Execute()
}
