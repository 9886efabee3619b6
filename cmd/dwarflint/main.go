// Command dwarflint checks the DWARF debugging information in one or more
// ELF object files for structural problems.
package main

import "github.com/dwarflint/dwarflint/cmd"

func main() {
	cmd.Execute()
}
