// Command sqllint checks that every inline SQL constant starts with a
// `--sql <uuid>` audit marker and that no two statements share a marker.
package main

import (
	"flag"
	"fmt"
	"os"
)

func main() {
	flag.Parse()
	targets := flag.Args()
	if len(targets) == 0 {
		targets = []string{"."}
	}

	l := newLinter()
	for _, target := range targets {
		if err := l.lintPath(target); err != nil {
			fmt.Fprintf(os.Stderr, "sqllint: %v\n", err)
			os.Exit(2)
		}
	}

	findings := l.findings()
	if len(findings) == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, "sqllint: SQL audit marker problems")
	for _, f := range findings {
		fmt.Fprintf(os.Stderr, "  %s\n", f)
	}
	os.Exit(1)
}
