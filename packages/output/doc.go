// Package output renders run results in console, JSON and JUnit formats.
package output
