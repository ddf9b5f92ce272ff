package main

import "github.com/proximity-lock/proximity-lock/cmd/proximity-packager/cmd"

func main() {
	cmd.Execute()
}
