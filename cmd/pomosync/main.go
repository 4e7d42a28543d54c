package main

import "github.com/mcdev12/pomosync/internal/cli"

func main() {
	cli.Execute()
}
