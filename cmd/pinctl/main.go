// Command pinctl drives a running pin agent from the command line.
package main

import "github.com/southflowpeak/pin/cmd/pinctl/commands"

func main() {
	commands.Execute()
}
