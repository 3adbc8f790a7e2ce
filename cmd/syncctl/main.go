package main

import "github.com/vishu3131/civisync/cmd/syncctl/cmd"

func main() {
	cmd.Execute()
}
