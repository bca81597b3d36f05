package main

import (
	"github.com/minidrive/storage/cmd"
)

func main() {
	cmd.Execute()
}
