// LogLens - Log Exploration Tool
//
// LogLens loads application logs from files and zip archives, merges them
// chronologically and filters, searches and charts them.
package main

import (
	"os"

	"github.com/ccollicutt/loglens/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
