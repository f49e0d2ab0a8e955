package main

import (
	"os"

	"github.com/invertedv/profile/cmd/acsprofile/cmd"
)

func main() {
	if e := cmd.Execute(); e != nil {
		os.Exit(1)
	}
}
