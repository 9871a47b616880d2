package main

import "github.com/kozaktomas/event-faces/cmd"

func main() {
	cmd.Execute()
}
