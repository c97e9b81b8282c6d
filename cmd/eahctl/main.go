// Package main is the entry point for the eahctl CLI.
//
// eahctl migrates Azure virtual machines from guest-level disk encryption to
// encryption at host. It decrypts the guest, clones the managed disks
// byte-for-byte, deletes the source VM, and rebuilds an equivalent VM with
// host encryption enabled.
//
// For detailed usage information, run:
//
//	eahctl --help
package main

import (
	"fmt"
	"os"

	"github.com/eahctl/eahctl/cmd/eahctl/commands"
	"github.com/eahctl/eahctl/internal/migration"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(migration.ExitCode(err))
	}
}
