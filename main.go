package main

import "github.com/agentic-research/classnav/cmd"

func main() {
	cmd.Execute()
}
