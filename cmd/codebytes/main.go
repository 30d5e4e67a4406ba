package main

import "github.com/nisimpson/codebytes/internal/cli"

func main() {
	cli.Execute()
}
