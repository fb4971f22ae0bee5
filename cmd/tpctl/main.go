package main

import "github.com/mcoot/teamprogress/internal/cli"

func main() {
	cli.Execute()
}
