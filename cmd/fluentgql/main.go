package main

import "github.com/ichaly/fluentgql/cmd"

func main() {
	cmd.Execute()
}
