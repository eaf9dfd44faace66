// lcore-node processes IoT sensor submissions from an external coordinator:
// it authenticates devices, applies the two-stage encryption transform, and
// persists results for later inspection.
package main

import (
	"os"

	"github.com/Modern-Society-Labs/lcore-node/cmd/lcore-node/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
