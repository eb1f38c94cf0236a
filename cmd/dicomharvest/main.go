// Command dicomharvest is the CLI entrypoint: it scans a directory tree for
// DICOM files and writes their patient names and IDs as JSON.
package main

import (
	"fmt"
	"os"

	"github.com/backmassage/dicomharvest/internal/cmd"
)

func main() {
	os.Exit(run())
}

func run() int {
	if err := cmd.NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "dicomharvest: %v\n", err)
		return 1
	}
	return 0
}
