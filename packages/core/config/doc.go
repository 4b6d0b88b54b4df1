// Package config loads and models the isoenv configuration file.
//
// It provides functionality for:
//   - Discovering isoenv.ini / tox.ini in a project directory
//   - Parsing the global [isoenv] section (envlist, workdir, skipsdist)
//   - Parsing [testenv] and [testenv:NAME] sections with inheritance
//   - Typed access to per-environment keys (commands, deps, passenv,
//     basepython, changedir, whitelist_externals, setenv, ...)
package config
