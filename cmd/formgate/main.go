package main

import "github.com/goliatone/go-formgate/cmd/formgate/cli"

func main() {
	cli.InitAndExecute()
}
