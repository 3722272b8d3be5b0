package main

import "github.com/brogergvhs/wattdl/cmd"

func main() {
	cmd.Execute()
}
