package main

import "github.com/withandromeda/andromeda/cmd"

func main() {
	cmd.Execute()
}
