package main

import (
	"github.com/Laisky/tamerlane/cmd"
)

func main() {
	cmd.Execute()
}
