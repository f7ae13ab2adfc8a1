// btview is a simple CLI tool for browsing and editing B+ tree block
// files holding uint64 values.
//
// Usage:
//
//	btview <filename>           # interactive mode
//	btview -l <filename>        # list mode (dump all values)
//	btview -l -n 20 <filename>  # list first 20 values
//
// Interactive commands:
//
//	insert <n>   add a value
//	erase <n>    remove a value
//	find <n>     look up a value
//	count <n>    0 or 1
//	dump         print all values in order
//	stats        tree and block statistics
//	quit         exit
//
// The tree root, height and size live in a sidecar manifest next to the
// block file, since the block collection itself only persists its
// allocation bitmap.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"

	"github.com/dacapoday/blocktree/btree"
)

func main() {
	listFlag := flag.Bool("l", false, "list mode (non-interactive)")
	countFlag := flag.Int("n", 0, "number of values (0 = all)")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: btview [-l] [-n count] <filename>")
		os.Exit(1)
	}

	filename := flag.Arg(0)

	tree := btree.New(btree.Uint64Layout())
	if err := tree.Open(filename, btree.Options{ReadOnly: *listFlag}); err != nil {
		fatal(err)
	}
	defer tree.Close()

	if err := loadManifest(tree, filename); err != nil {
		fatal(err)
	}

	if *listFlag {
		runList(tree, *countFlag)
		return
	}

	runInteractive(tree, filename)
}

func fatal(err error) {
	color.Red("error: %v", err)
	os.Exit(1)
}

func runList(tree *btree.Tree[uint64, uint64], count int) {
	n := 0
	err := tree.InOrderDump(func(v uint64) bool {
		fmt.Println(v)
		n++
		return count == 0 || n < count
	})
	if err != nil {
		fatal(err)
	}
}

func runInteractive(tree *btree.Tree[uint64, uint64], filename string) {
	prompt := color.New(color.FgCyan)
	okay := color.New(color.FgGreen)
	warn := color.New(color.FgYellow)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		prompt.Printf("btview> ")
		if !scanner.Scan() {
			break
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		switch strings.ToLower(fields[0]) {
		case "quit", "q", "exit":
			if err := saveManifest(tree, filename); err != nil {
				fatal(err)
			}
			return
		case "insert":
			withArg(fields, warn, func(v uint64) {
				if err := tree.Insert(v); err != nil {
					warn.Println(err)
					return
				}
				okay.Printf("inserted %d\n", v)
			})
		case "erase":
			withArg(fields, warn, func(v uint64) {
				if err := tree.Erase(v); err != nil {
					warn.Println(err)
					return
				}
				okay.Printf("erased %d\n", v)
			})
		case "find":
			withArg(fields, warn, func(v uint64) {
				got, ok, err := tree.TryFind(v)
				if err != nil {
					warn.Println(err)
					return
				}
				if !ok {
					warn.Printf("%d not found\n", v)
					return
				}
				okay.Printf("%d\n", got)
			})
		case "count":
			withArg(fields, warn, func(v uint64) {
				n, err := tree.Count(v)
				if err != nil {
					warn.Println(err)
					return
				}
				fmt.Println(n)
			})
		case "dump":
			err := tree.InOrderDump(func(v uint64) bool {
				fmt.Println(v)
				return true
			})
			if err != nil {
				warn.Println(err)
			}
		case "stats":
			allocated, capacity := tree.Blocks().Stats()
			fmt.Printf("size=%d height=%d root=%d blocks=%d/%d\n",
				tree.Size(), tree.Height(), tree.Root(), allocated, capacity)
		default:
			warn.Printf("unknown command %q\n", fields[0])
		}
	}

	if err := saveManifest(tree, filename); err != nil {
		fatal(err)
	}
}

func withArg(fields []string, warn *color.Color, fn func(uint64)) {
	if len(fields) < 2 {
		warn.Println("missing argument")
		return
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		warn.Printf("bad argument %q\n", fields[1])
		return
	}
	fn(v)
}

func manifestPath(filename string) string {
	return filename + ".manifest"
}

// loadManifest restores root, height and size saved by a previous session.
func loadManifest(tree *btree.Tree[uint64, uint64], filename string) error {
	f, err := os.Open(manifestPath(filename))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer f.Close()

	var root uint64
	var height int
	var size int64
	if _, err = fmt.Fscan(f, &root, &height, &size); err != nil {
		return fmt.Errorf("manifest %s: %w", manifestPath(filename), err)
	}
	return tree.Attach(btree.Handle(root), height, size)
}

func saveManifest(tree *btree.Tree[uint64, uint64], filename string) error {
	data := fmt.Sprintf("%d %d %d\n", tree.Root(), tree.Height(), tree.Size())
	return os.WriteFile(manifestPath(filename), []byte(data), 0o644)
}
