package main

import "trailbt/internal/cli"

func main() {
	cli.Execute()
}
