// Package cmd implements the isoenv command-line interface.
package cmd
