package main

import (
	"github.com/AzielCF/az-qcache/cmd"
)

func main() {
	cmd.Execute()
}
