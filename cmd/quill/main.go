package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/crimson-sun/quill/internal/model"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var startup *model.StartupError
		if errors.As(err, &startup) {
			fmt.Fprintf(os.Stderr, "quill: failed to start: %v\n", err)
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "quill: %v\n", err)
		os.Exit(1)
	}
}
