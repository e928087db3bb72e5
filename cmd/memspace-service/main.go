package main

import (
	"os"

	"github.com/memspace/memspace/memspaceservice"
)

func main() {
	if err := memspaceservice.Run(); err != nil {
		os.Exit(1)
	}
}
