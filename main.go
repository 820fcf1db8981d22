// The main package for the refhub executable.
package main

import (
	"github.com/apc-golf/refhub/cmd"
)

func main() {
	cmd.Execute()
}
