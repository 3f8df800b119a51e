package main

import "github.com/cosify/cosify/cmd"

func main() {
	cmd.Execute()
}
