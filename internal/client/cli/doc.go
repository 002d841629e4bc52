// Package cli implements cubicctl, a command-line client for a cubicd
// device.
//
// With a command on the command line it runs that command and exits.
// Without one it reads commands from stdin, showing a prompt and indented
// JSON when stdin is a terminal. See App.Run.
package cli
