package main

import (
	"fmt"
	"os"

	"github.com/IkonicR/clanova-manager/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "clanova: %v\n", err)
		os.Exit(1)
	}
}
