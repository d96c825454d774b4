package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if _, perr := fmt.Fprintf(os.Stderr, "Error: %v\n", err); perr != nil {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}
}
