package main

import "github.com/go-go-golems/chatrelay/cmd/chatrelay/cmds"

func main() {
	cmds.Execute()
}
