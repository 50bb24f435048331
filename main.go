// The main package for the docfoundry executable.
package main

import (
	"github.com/docfoundry/docfoundry/cmd"
)

func main() {
	cmd.Execute()
}
