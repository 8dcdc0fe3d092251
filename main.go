package main

import "github.com/ds24m038/GenAI-Table-Processing/cmd"

func main() {
	cmd.Execute()
}
