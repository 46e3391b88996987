// Command testhub syncs Java repositories and tracks their test case annotations.
package main

import (
	"os"

	"github.com/huangsam/testhub/cmd"
	"github.com/huangsam/testhub/internal/contract"
)

func main() {
	if err := cmd.Execute(); err != nil {
		contract.LogError("testhub", err)
		os.Exit(1)
	}
}
