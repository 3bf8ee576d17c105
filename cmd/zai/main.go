package main

import "github.com/diogo/zai/internal/commands"

func main() {
	commands.Execute()
}
