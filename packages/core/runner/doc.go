// Package runner executes configured environments and their command lists.
//
// For each selected environment it resolves the interpreter, ensures the
// isolated environment exists with its dependencies installed, then runs the
// configured commands strictly in order. The first failing command aborts
// the remaining commands of that environment; remaining environments still
// run. A leading "-" on a command line ignores that command's failure.
package runner
