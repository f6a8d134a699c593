package main

import (
	"context"
	"os"

	"github.com/rl1809/bakery-storefront/internal/cli"
)

func main() {
	os.Exit(cli.Execute(context.Background()))
}
