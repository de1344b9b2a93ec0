package main

import "github.com/ByLCY/stylus/cmd"

func main() {
	cmd.Execute()
}
