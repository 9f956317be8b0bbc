package main

import (
	"github.com/snapfood/snapfood-engine/cmd"
)

func main() {
	cmd.Execute()
}
