package main

import "github.com/jmehdipour/event-stream/cmd"

func main() {
	cmd.Execute()
}
