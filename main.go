/*
Command-line tool for listing and copying files through a privileged shell.

Usage:

	$ shellfs [<flags>] <subcommand> [<args> ...]

Use 'shellfs help' to see more details.
*/
package main

import (
	"os"

	"github.com/alecthomas/kingpin/v2"

	"github.com/shellfs/shellfs/cli"
	"github.com/shellfs/shellfs/internal/logfile"
)

func main() {
	app := cli.NewApp()
	kp := kingpin.New("shellfs", "List and copy files through a privileged shell.")

	logfile.Attach(app, kp)
	app.Attach(kp)

	kingpin.MustParse(kp.Parse(os.Args[1:]))
}
