// Command prisscanner scans grocery catalogs for wanted products.
package main

import (
	"github.com/JakeFAU/pris-scanner/cmd"
)

func main() {
	cmd.Execute()
}
