// Command clipmark runs the clip annotation backend and a line-driven
// annotation client against it.
//
// Subcommands:
//
//	serve        run the HTTP backend over the configured clip folders
//	annotate     drive an annotation session from commands on stdin
//	clips        list the local clip catalog
//	blocks       show block assignment progress
//	annotations  list, export, and summarize stored annotations
//	check        run preflight checks
//	config       create or validate the configuration file
package main
