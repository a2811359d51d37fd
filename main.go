package main

import "github.com/fakeyudi/codepad/cmd"

func main() {
	cmd.Execute()
}
