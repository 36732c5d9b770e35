// Command graphannis is the interactive corpus-query CLI of spec.md
// section 6: it opens a corpusstorage.Store rooted at a data directory
// and drops into a line-oriented command loop (import, list, delete,
// corpus, preload, update_statistics, count, find, frequency, plan,
// parse, use_parallel, quit) over it.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/korpling/graphannis-go/pkg/corpusstorage"
)

// exitInvalidDataDir is spec.md section 6's CLI exit code for an
// unusable data directory.
const exitInvalidDataDir = 3

func main() {
	var dataDir string

	rootCmd := &cobra.Command{
		Use:   "graphannis [data-dir]",
		Short: "graphannis is the corpus query engine's interactive CLI",
		Long: `graphannis opens a directory of corpora and offers an interactive
shell over the count/find/frequency/subgraph entry points described in
spec.md section 4.9: import relANNIS exports, list and delete corpora,
select one to query, inspect its query plan, and run AQL queries
against it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				dataDir = args[0]
			}
			return runShell(dataDir)
		},
	}
	rootCmd.Flags().StringVar(&dataDir, "data-dir", "data", "corpus data directory")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// shell is the interactive session's mutable state: the open store, the
// currently selected corpus name, and the use_parallel toggle.
type shell struct {
	store    *corpusstorage.Store
	corpus   string
	parallel bool
	out      *bufio.Writer
}

func runShell(dataDir string) error {
	if dataDir == "" {
		fmt.Fprintln(os.Stderr, "graphannis: empty data directory")
		os.Exit(exitInvalidDataDir)
	}

	store, err := corpusstorage.NewStore(corpusstorage.StoreConfig{Root: dataDir})
	if err != nil {
		fmt.Fprintf(os.Stderr, "graphannis: invalid data directory %q: %v\n", dataDir, err)
		os.Exit(exitInvalidDataDir)
	}
	defer store.Close()

	sh := &shell{store: store, parallel: true, out: bufio.NewWriter(os.Stdout)}
	defer sh.out.Flush()

	scanner := bufio.NewScanner(os.Stdin)
	sh.prompt()
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			sh.prompt()
			continue
		}
		if sh.dispatch(line) {
			return nil
		}
		sh.prompt()
	}
	return scanner.Err()
}

func (sh *shell) prompt() {
	if sh.corpus != "" {
		fmt.Fprintf(sh.out, "%s> ", sh.corpus)
	} else {
		fmt.Fprint(sh.out, "graphannis> ")
	}
	sh.out.Flush()
}

// dispatch runs one command line and reports whether the shell should
// exit.
func (sh *shell) dispatch(line string) bool {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	var err error
	switch cmd {
	case "quit", "exit":
		return true
	case "import":
		err = sh.cmdImport(args)
	case "list":
		err = sh.cmdList()
	case "delete":
		err = sh.cmdDelete(args)
	case "corpus":
		err = sh.cmdCorpus(args)
	case "preload":
		err = sh.cmdPreload(args)
	case "update_statistics":
		err = sh.cmdUpdateStatistics(args)
	case "count":
		err = sh.cmdCount(args)
	case "find":
		err = sh.cmdFind(args)
	case "frequency":
		err = sh.cmdFrequency(args)
	case "plan":
		err = sh.cmdPlan(args)
	case "parse":
		err = sh.cmdParse(args)
	case "use_parallel":
		err = sh.cmdUseParallel(args)
	default:
		err = fmt.Errorf("unknown command %q", cmd)
	}
	if err != nil {
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return false
}

// currentCorpus returns the selected corpus name, or an error if none
// has been chosen via "corpus <name>" yet.
func (sh *shell) currentCorpus() (string, error) {
	if sh.corpus == "" {
		return "", fmt.Errorf("no corpus selected; use: corpus <name>")
	}
	return sh.corpus, nil
}

func requireArgs(args []string, n int, usage string) error {
	if len(args) < n {
		return fmt.Errorf("usage: %s", usage)
	}
	return nil
}

func joinQuery(args []string) string {
	return strings.Join(args, " ")
}
