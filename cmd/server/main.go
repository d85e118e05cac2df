package main

import "github.com/eslsoft/hifznet/cmd"

func main() {
	cmd.Execute()
}
