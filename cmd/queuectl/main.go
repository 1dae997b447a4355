// queuectl inspects and prunes the persisted offline operation queue.
//
//	queuectl -path /var/lib/heytrack/offline_operations_queue.json        # list
//	queuectl -path ... -drop 3f1c...                                      # drop one operation
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/monifinebakery/BISMILLAH-sub013/internal/worker"
)

func main() {
	path := flag.String("path", "/var/lib/heytrack/offline_operations_queue.json", "queue file path")
	drop := flag.String("drop", "", "operation id to remove")
	flag.Parse()

	store := worker.NewFileStore(*path)
	ops := store.Load()

	if *drop != "" {
		kept := ops[:0]
		found := false
		for _, op := range ops {
			if op.ID == *drop {
				found = true
				continue
			}
			kept = append(kept, op)
		}
		if !found {
			fmt.Fprintf(os.Stderr, "operation %s not found\n", *drop)
			os.Exit(1)
		}
		if _, err := store.Save(kept); err != nil {
			fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("dropped %s, %d operations remain\n", *drop, len(kept))
		return
	}

	if len(ops) == 0 {
		fmt.Println("queue is empty")
		return
	}
	for _, op := range ops {
		fmt.Printf("%s  %-20s  owner=%s  retries=%d/%d  %s\n",
			op.ID, op.Type, op.OwnerID, op.RetryCount, op.MaxRetries,
			op.Timestamp.Format("2006-01-02 15:04:05"))
	}
	fmt.Printf("%d pending operation(s)\n", len(ops))
}
