package main

import "github.com/example/parkour/cmd"

func main() {
	cmd.Execute()
}
