package main

import "repogen/internal/cli"

func main() {
	cli.Execute()
}
