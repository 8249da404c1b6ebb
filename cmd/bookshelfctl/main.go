package main

import "bookshelf/internal/cli"

func main() {
	cli.Execute()
}
