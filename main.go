package main

import (
	"os"

	"github.com/quillhost/quill/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
