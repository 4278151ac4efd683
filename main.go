package main

import "github.com/f1replay/replay-service-go/cmd"

func main() {
	cmd.Execute()
}
