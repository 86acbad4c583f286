package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/tomhaynes/fakeprod"
)

func main() {
	// Define the flags
	pflag.Bool("serve", false, "Start the server")
	pflag.Parse()

	if pflag.Lookup("serve").Value.String() == "true" {
		// Load configuration
		if err := LoadConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}

		// Start the server
		if err := fakeprod.RunServer(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
	} else {
		// Output help message
		fmt.Println("Usage:")
		pflag.PrintDefaults()
	}
}
