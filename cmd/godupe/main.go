// Command godupe finds files with identical content under a directory tree,
// locally or on a remote host over SFTP.
package main

import (
	"context"
	"os"
)

var version = "dev"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}
