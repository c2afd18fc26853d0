package main

import "github.com/drycc/controller/cmd/controller/cmd"

func main() {
	cmd.Execute()
}
