// Command wardsim simulates the bed allocation of a hospital ward.
package main

import "github.com/sarchlab/wardsim/wardsim/cmd"

func main() {
	cmd.Execute()
}
