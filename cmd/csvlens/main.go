// Command csvlens is a terminal CSV viewer: scroll, freeze columns,
// filter by a regex-matched column subset, and find/sort rows, all
// against a file that may still be growing.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/YS-L/csvlens-sub000/internal/columnsfilter"
	"github.com/YS-L/csvlens-sub000/internal/config"
	"github.com/YS-L/csvlens-sub000/internal/rowprovider"
	"github.com/YS-L/csvlens-sub000/internal/view"
	"github.com/YS-L/csvlens-sub000/internal/watch"
)

// Version information, matching the teacher's main.go convention of
// hand-maintained build constants rather than ldflags injection.
const (
	Version   = "0.1.0"
	BuildDate = "2026-07-29"
)

var cleanupFuncs []func()

func main() {
	fs := flag.NewFlagSet("csvlens", flag.ExitOnError)

	delimiter := fs.String("delimiter", ",", "field delimiter (single character)")
	tab := fs.Bool("tab", false, "use tab as the delimiter (overrides -delimiter)")
	noHeaders := fs.Bool("no-headers", false, "treat the first row as data, not a header")
	columnsPattern := fs.String("columns", "", "regex matched against headers to choose displayed columns")
	filterPattern := fs.String("filter", "", "regex applied as a row filter from startup")
	findPattern := fs.String("find", "", "regex to find from startup")
	ignoreCase := fs.Bool("ignore-case", false, "case-insensitive filter/find matching")
	echoColumn := fs.String("echo-column", "", "column name to print to stdout for the row selected on exit")
	debug := fs.Bool("debug", false, "show the debug stats panel")
	freezeCols := fs.Int("freeze-cols", 0, "number of leading columns excluded from horizontal scroll")
	prompt := fs.String("prompt", "", "custom message shown in the status bar")
	version := fs.Bool("version", false, "print version and exit")

	_ = fs.Parse(os.Args[1:])

	if *version {
		fmt.Printf("csvlens v%s (%s)\n", Version, BuildDate)
		return
	}

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: csvlens [flags] <file.csv>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	path := fs.Arg(0)

	delimByte := byte(',')
	if *tab {
		delimByte = '\t'
	} else if d, err := config.ValidateDelimiterByte(*delimiter); err != nil {
		fmt.Fprintf(os.Stderr, "csvlens: %v\n", err)
		os.Exit(1)
	} else {
		delimByte = d
	}

	cfg, err := config.New(path, delimByte, !*noHeaders)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvlens: %v\n", err)
		os.Exit(1)
	}
	cfg.IgnoreCase = *ignoreCase
	cfg.EchoColumn = *echoColumn
	cfg.Debug = *debug
	cfg.FreezeCols = *freezeCols
	cfg.Prompt = *prompt

	provider, err := rowprovider.New(cfg)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "csvlens: file not found: %s\n", path)
		} else {
			fmt.Fprintf(os.Stderr, "csvlens: %v\n", err)
		}
		os.Exit(1)
	}

	watcher, err := watch.New(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvlens: %v\n", err)
		os.Exit(1)
	}
	cleanupFuncs = append(cleanupFuncs, watcher.Terminate)

	rowsView, err := view.New(provider, 20)
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvlens: %v\n", err)
		os.Exit(1)
	}
	rowsView.SetFreezeCols(*freezeCols)

	var colFilter *columnsfilter.ColumnsFilter
	if *columnsPattern != "" {
		pat, err := compilePattern(*columnsPattern, *ignoreCase)
		if err != nil {
			fmt.Fprintf(os.Stderr, "csvlens: invalid -columns regex: %v\n", err)
			os.Exit(1)
		}
		colFilter = columnsfilter.New(pat, provider.Headers())
	}

	m := newModel(cfg, provider, watcher, rowsView, colFilter)

	if *filterPattern != "" {
		if pat, err := compilePattern(*filterPattern, *ignoreCase); err == nil {
			m.startFind(pat.String(), true)
		}
	} else if *findPattern != "" {
		if pat, err := compilePattern(*findPattern, *ignoreCase); err == nil {
			m.startFind(pat.String(), false)
		}
	}

	setupSignalHandler()

	p := tea.NewProgram(m, tea.WithAltScreen())
	finalModel, err := p.Run()
	runCleanup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "csvlens: %v\n", err)
		os.Exit(1)
	}

	if fm, ok := finalModel.(*model); ok && fm.selectedEcho != "" {
		fmt.Println(fm.selectedEcho)
	}
}

func compilePattern(pattern string, ignoreCase bool) (*regexp.Regexp, error) {
	if ignoreCase && !strings.HasPrefix(pattern, "(?i)") {
		pattern = "(?i)" + pattern
	}
	return regexp.Compile(pattern)
}

func setupSignalHandler() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		runCleanup()
		os.Exit(130)
	}()
}

func runCleanup() {
	for i := len(cleanupFuncs) - 1; i >= 0; i-- {
		cleanupFuncs[i]()
	}
	cleanupFuncs = nil
}
