// Package subst expands {variable} substitutions in configuration values.
//
// Supported forms:
//   - {rootdir}, {workdir}, {envname}, {envdir}, {envbindir}, {envpython}
//   - {posargs} and {posargs:default args}
//   - {env:VAR} and {env:VAR:default}
//   - {[section]key} cross-section references
//   - {{ and }} for literal braces
package subst
