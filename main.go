// Command pdfmerge combines PDF files into one document, in the order the
// user chooses, from the browser, the terminal UI or the command line.
package main

import (
	"os"

	"example.com/pdfmerge/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
