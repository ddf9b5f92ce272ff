package main

import "github.com/proximity-lock/proximity-lock/cmd/proximity-lock/cmd"

func main() {
	cmd.Execute()
}
