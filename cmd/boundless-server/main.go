package main

import "github.com/vaporvee/boundless-server/cmd/boundless-server/cmd"

func main() {
	cmd.Execute()
}
