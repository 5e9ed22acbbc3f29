package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

func main() {
	// a missing .env is fine; GEOSURVEY_* may come from the real environment
	_ = godotenv.Load()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
