package main

import "github.com/frahlg/price-negative-comparison/internal/cli"

func main() {
	cli.Execute()
}
