// Command cartdump builds a cart.Map from newline-separated keys on stdin
// and reports its node shape distribution, for inspecting how a real key
// corpus (a wordlist, a log of production keys) lays out across SKIP,
// BINARY, LIST, POP and FULL nodes.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"github.com/TomTonic/cart"
)

func main() {
	full := flag.Bool("full", false, "also print the full tree dump")
	flag.Parse()

	m := cart.New[int]()
	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var count int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		key := make([]byte, len(line))
		copy(key, line)
		m.Insert(key, count)
		count++
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "cartdump: reading stdin: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("inserted %d keys (%d distinct)\n", count, m.Size())

	hist := m.ShapeHistogram()
	total := 0
	for _, n := range hist {
		total += n
	}
	for _, shape := range []string{"SKIP", "BINARY", "LIST", "POP", "FULL"} {
		n := hist[shape]
		pct := 0.0
		if total > 0 {
			pct = 100 * float64(n) / float64(total)
		}
		fmt.Printf("  %-7s %8d  (%5.1f%%)\n", shape, n, pct)
	}
	fmt.Printf("  %-7s %8d\n", "total", total)

	if *full {
		if err := m.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "cartdump: %v\n", err)
			os.Exit(1)
		}
	}
}
