// Command pin is the Pin agent process: the long-running state
// machine, dispatcher, HTTP mirror, and menu bar presenter.
package main

import "github.com/southflowpeak/pin/cmd/pin/commands"

func main() {
	commands.Execute()
}
