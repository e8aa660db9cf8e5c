package main

import "cropscan/internal/cli"

func main() {
	cli.Main()
}
