// Command importctl previews and commits catalog files from the shell,
// against the same stores and configuration as the server.
package main

import (
	"os"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.LookupEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
