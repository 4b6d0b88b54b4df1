// Package venv creates and maintains isolated Python environments.
//
// It provides functionality for:
//   - Resolving the interpreter named by basepython
//   - Creating virtual environments with "python -m venv"
//   - Installing dependency lists via the configured install command
//   - Detecting stale environments through a state file and recreating them
package venv
