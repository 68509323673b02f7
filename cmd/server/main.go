package main

import (
	"fmt"
	"os"

	"hrms/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "hrms:", err)
		os.Exit(1)
	}
}
