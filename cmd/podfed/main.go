package main

import "podfed/internal/cmd"

func main() {
	cmd.Run()
}
