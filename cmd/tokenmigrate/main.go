package main

import (
	"context"
	"os"

	"github.com/dmitrijs2005/tokenmigrate/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background(), os.Stdin, os.Stdout, os.Stderr))
}
