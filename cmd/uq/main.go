package main

import "github.com/mbeoliero/uq/internal/cli"

func main() {
	cli.Execute()
}
