package main

import "wirehub/cmd/cli/command"

func main() {
	command.Execute()
}
