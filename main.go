package main

import "github.com/lepinkainen/catalink/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
