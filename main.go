package main

import "github.com/aide-dev/aide/cmd"

func main() {
	cmd.Execute()
}
