// Command soundql runs a SoundQL program against a local music library:
// one source file (or stdin), one SQLite-backed library, one shot at the
// standard vocabulary.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/NGnius/mps/internal/collab/fswalk"
	"github.com/NGnius/mps/internal/collab/mpdclient"
	"github.com/NGnius/mps/internal/collab/sqlitedb"
	"github.com/NGnius/mps/internal/collab/tagprobe"
	"github.com/NGnius/mps/internal/context"
	"github.com/NGnius/mps/internal/runner"
	"github.com/NGnius/mps/internal/value"
	"github.com/NGnius/mps/internal/vocabulary"
)

func main() {
	os.Exit(execute(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	var file, dbPath, musicRoot, mpdAddr string
	var quiet bool

	newRunner := func() (*runner.Runner, io.Closer, error) {
		src, closer, err := openInput(file, stdin)
		if err != nil {
			return nil, nil, err
		}
		walker := fswalk.New()
		probe := tagprobe.New()
		db, err := sqlitedb.New(dbPath, walker, probe)
		if err != nil {
			return nil, closer, err
		}
		ctx := context.New(context.Options{
			MusicRoot:  musicRoot,
			DefaultMPD: mpdAddr,
		}, db, mpdclient.New(), probe, walker)
		return runner.New(src, vocabulary.Standard(), ctx), closer, nil
	}

	runProgram := func(quiet bool) error {
		r, closer, err := newRunner()
		if closer != nil {
			defer closer.Close()
		}
		if err != nil {
			return err
		}
		for {
			items, err, ok := r.Next()
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
			if !quiet {
				printItems(stdout, items)
			}
		}
	}

	root := &cobra.Command{
		Use:           "soundql",
		Short:         "Query and iterate music collections with SoundQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProgram(quiet)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetArgs(args)

	flags := func(cmd *cobra.Command) {
		cmd.Flags().StringVarP(&file, "file", "f", "-", "program file to run (- for stdin)")
		cmd.Flags().StringVar(&dbPath, "db", "soundql.sqlite", "path to the SQLite music library")
		cmd.Flags().StringVar(&musicRoot, "root", ".", "default music root folder")
		cmd.Flags().StringVar(&mpdAddr, "mpd", "", "default MPD server address (host:port)")
	}
	flags(root)

	check := &cobra.Command{
		Use:           "check",
		Short:         "Run a program without printing its results, reporting only errors",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runProgram(true)
		},
	}
	flags(check)
	root.AddCommand(check)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

func openInput(path string, stdin io.Reader) (io.Reader, io.Closer, error) {
	if path == "-" {
		return stdin, nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, f, nil
}

func printItems(w io.Writer, items []*value.Item) {
	for _, item := range items {
		fields := item.Fields()
		for i, f := range fields {
			if i > 0 {
				fmt.Fprint(w, "\t")
			}
			v, _ := item.Get(f)
			fmt.Fprintf(w, "%s=%s", f, v.String())
		}
		fmt.Fprintln(w)
	}
}
