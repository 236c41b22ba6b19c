package main

import "github.com/oshokin/yale-alarm/cmd/yale-alarm/cmd"

func main() {
	cmd.Execute()
}
