package main

import "pencil-translator/internal/cli"

func main() {
	cli.Execute()
}
