package main

import (
	"os"

	"github.com/memspace/memspace/accesslogworker"
)

func main() {
	if err := accesslogworker.Run(); err != nil {
		os.Exit(1)
	}
}
