// Package shell provides the run_command tool.
//
// Commands run through the platform shell with a hard timeout; output is
// capped so a chatty command cannot flood the brain's context.
package shell
