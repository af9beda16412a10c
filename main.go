package main

import (
	"gmailcat/cmd"
)

func main() {
	cmd.Execute()
}
