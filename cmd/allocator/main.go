// Package main is the entry point for the allocator command-line tool.
package main

import "github.com/aristath/allocator/internal/cli"

func main() {
	cli.Execute()
}
