// Command pdmtracker analyzes territorial development plan workbooks.
package main

import (
	"os"

	"pdmtracker/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
