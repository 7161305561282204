package main

import "github.com/pocketdb/pocketdb/cmd"

func main() {
	cmd.Execute()
}
