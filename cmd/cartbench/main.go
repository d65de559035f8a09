// Command cartbench drives a concurrent insert/find/erase workload against
// a cart.Map and reports throughput, for comparing the threaded and
// single-threaded engines under varying worker counts and key shapes.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/TomTonic/cart"
	"github.com/TomTonic/cart/internal/randkeys"
)

func main() {
	n := flag.Int("n", 200_000, "number of distinct keys to generate")
	minLen := flag.Int("minlen", 4, "minimum key length in bytes")
	maxLen := flag.Int("maxlen", 32, "maximum key length in bytes")
	seed := flag.Uint64("seed", 1, "key generator seed")
	workers := flag.Int("workers", runtime.GOMAXPROCS(0), "concurrent goroutines")
	threaded := flag.Bool("threaded", true, "use the lock-free-read engine")
	flag.Parse()

	if *workers < 1 {
		log.Fatalf("workers must be >= 1, got %d", *workers)
	}

	gen := randkeys.New(*seed, *minLen, *maxLen)
	keys := gen.Distinct(*n)
	fmt.Printf("generated %d distinct keys (len %d-%d)\n", len(keys), *minLen, *maxLen)

	var opts []cart.Option[cart.Key, int]
	if *threaded {
		opts = append(opts, cart.WithThreaded[cart.Key, int](true))
	}
	m := cart.New[int](opts...)

	runPhase("insert", keys, *workers, func(idx int) {
		m.Insert(keys[idx], idx)
	})

	if got := m.Size(); got != len(keys) {
		log.Fatalf("post-insert size = %d, want %d", got, len(keys))
	}
	if vals := cart.Values(m); vals.Size() != len(keys) {
		log.Fatalf("Values() cardinality = %d, want %d (every key carries a distinct index)", vals.Size(), len(keys))
	}

	runPhase("find", keys, *workers, func(idx int) {
		if _, ok := m.Find(keys[idx]); !ok {
			log.Fatalf("Find missed a key that was just inserted")
		}
	})

	runPhase("erase", keys, *workers, func(idx int) {
		m.Erase(keys[idx])
	})

	if !m.Empty() {
		log.Fatalf("map not empty after erasing every generated key")
	}

	stats := m.Stats()
	fmt.Printf("stats: inserts=%d erases=%d probeRetries=%d pessimisticFallbacks=%d shapeGrowths=%d shapeShrinks=%d reclaims=%d\n",
		stats.Inserts, stats.Erases, stats.ProbeRetries, stats.PessimisticFallbacks,
		stats.ShapeGrowths, stats.ShapeShrinks, stats.Reclaims)
}

// runPhase splits [0, len(keys)) into workers contiguous shards and runs fn
// over every index concurrently, printing wall-clock throughput for name.
func runPhase(name string, keys [][]byte, workers int, fn func(idx int)) {
	start := time.Now()
	var wg sync.WaitGroup
	shard := (len(keys) + workers - 1) / workers
	for w := 0; w < workers; w++ {
		lo := w * shard
		hi := lo + shard
		if hi > len(keys) {
			hi = len(keys)
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				fn(i)
			}
		}(lo, hi)
	}
	wg.Wait()
	elapsed := time.Since(start)
	opsPerSec := float64(len(keys)) / elapsed.Seconds()
	fmt.Fprintf(os.Stdout, "%-6s %8d ops in %10s  (%.0f ops/sec)\n", name, len(keys), elapsed, opsPerSec)
}
