package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/starford/marketeer/internal"
	"github.com/starford/marketeer/internal/apperr"
	"github.com/starford/marketeer/internal/dedup"
	"github.com/starford/marketeer/internal/parser"
	"github.com/starford/marketeer/internal/session"
)

// cliEnv is what every editing command needs: the config, a text logger
// on stderr and a session on the configured project.
type cliEnv struct {
	cfg    *internal.Config
	logger *slog.Logger
	sess   *session.Session
	out    io.Writer
	in     io.Reader
}

func openEnv(cmd *cli.Command) (*cliEnv, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	root := cmd.Root()
	logger := internal.NewLogger(root.ErrWriter, cfg.App.LogLevel, false)
	sess, err := internal.OpenSession(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &cliEnv{cfg: cfg, logger: logger, sess: sess, out: root.Writer, in: root.Reader}, nil
}

// warnCoerced logs substitution errors and returns any other error.
func (e *cliEnv) warnCoerced(err error) error {
	if err == nil {
		return nil
	}
	var fe *apperr.FieldError
	if errors.As(err, &fe) {
		e.logger.Warn("invalid value replaced by default",
			slog.String("field", fe.Field), slog.String("input", fe.Input))
		return nil
	}
	return err
}

// confirm asks a yes/no question on the command streams.
func (e *cliEnv) confirm(question string) bool {
	fmt.Fprintf(e.out, "%s [y/N] ", question)
	line, _ := bufio.NewReader(e.in).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func requireArgs(cmd *cli.Command, n int) error {
	if cmd.NArg() < n {
		return fmt.Errorf("%w: %s needs %d argument(s): %s", apperr.ErrValidation, cmd.Name, n, cmd.ArgsUsage)
	}
	return nil
}

func duplicatesCommand() *cli.Command {
	return &cli.Command{
		Name:  "duplicates",
		Usage: "Find or remove repeated class names and categories",
		Commands: []*cli.Command{
			{
				Name:   "scan",
				Usage:  "Report duplicates in every market and trader file",
				Action: duplicatesScan,
			},
			{
				Name:  "remove",
				Usage: "Remove duplicates, keeping the first occurrence",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "Do not ask for confirmation"},
				},
				Action: duplicatesRemove,
			},
		},
	}
}

func printScan(out io.Writer, rep *dedup.Report) {
	fmt.Fprintln(out, strings.TrimRight(dedup.Summary(rep, 10), "\n"))
	for _, f := range rep.Failures {
		fmt.Fprintf(out, "skipped %s: %v\n", f.Path, f.Err)
	}
}

func duplicatesScan(_ context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	rep, err := e.sess.ScanDuplicates()
	if err != nil {
		return err
	}
	printScan(e.out, rep)
	return nil
}

func duplicatesRemove(_ context.Context, cmd *cli.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	rep, err := e.sess.ScanDuplicates()
	if err != nil {
		return err
	}
	printScan(e.out, rep)
	if rep.Total() == 0 {
		return nil
	}
	if !cmd.Bool("yes") && !e.confirm(fmt.Sprintf("Remove all %d duplicate(s)?", rep.Total())) {
		fmt.Fprintln(e.out, "Aborted.")
		return nil
	}
	res := e.sess.RemoveDuplicates(rep)
	fmt.Fprintf(e.out, "Removed %d duplicate(s), saved %d file(s).\n", res.Removed, res.FilesSaved)
	for _, f := range res.Failures {
		fmt.Fprintf(e.out, "failed %s: %v\n", f.Path, f.Err)
	}
	if len(res.Failures) > 0 {
		return fmt.Errorf("%d file(s) could not be saved", len(res.Failures))
	}
	return nil
}

func typesCommand() *cli.Command {
	return &cli.Command{
		Name:  "types",
		Usage: "List class names from the types folder",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read a single XML file of the types folder"},
			&cli.StringFlag{Name: "filter", Usage: "Case-insensitive substring filter"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			var names []string
			if file := cmd.String("file"); file != "" {
				var strategy parser.Strategy
				names, strategy, err = e.sess.TypeNamesInFile(file, cmd.String("filter"))
				if err != nil {
					return err
				}
				e.logger.Debug("types parsed", slog.String("file", file), slog.String("strategy", string(strategy)))
			} else if names, err = e.sess.TypeNames(cmd.String("filter")); err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(e.out, n)
			}
			return nil
		},
	}
}

func projectCommand() *cli.Command {
	return &cli.Command{
		Name:  "project",
		Usage: "Show or save the project folders",
		Commands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print the folders in use",
				Action: func(_ context.Context, cmd *cli.Command) error {
					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					p := e.sess.Project()
					fmt.Fprintf(e.out, "market_folder: %s\ntraders_folder: %s\ntypes_folder: %s\n",
						p.MarketFolder, p.TradersFolder, p.TypesFolder)
					return nil
				},
			},
			{
				Name:      "save",
				Usage:     "Write the folders in use to a project file",
				ArgsUsage: "[PATH]",
				Action: func(_ context.Context, cmd *cli.Command) error {
					e, err := openEnv(cmd)
					if err != nil {
						return err
					}
					path := e.cfg.Project.File
					if cmd.NArg() > 0 {
						path = cmd.Args().First()
					}
					if err := e.sess.Project().Save(path); err != nil {
						return err
					}
					fmt.Fprintf(e.out, "Project saved to %s\n", path)
					return nil
				},
			},
		},
	}
}

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search class names and categories across the project",
		ArgsUsage: "QUERY",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "files", Usage: "List the files containing QUERY exactly"},
			&cli.IntFlag{Name: "limit", Usage: "Maximum number of results", Value: 50},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if err := requireArgs(cmd, 1); err != nil {
				return err
			}
			e, err := openEnv(cmd)
			if err != nil {
				return err
			}
			db, err := internal.OpenIndex(e.cfg, e.sess, e.logger)
			if err != nil {
				return err
			}
			defer db.Close()

			query := cmd.Args().First()
			if cmd.Bool("files") {
				refs, err := db.FilesContaining(query)
				if err != nil {
					return err
				}
				for _, r := range refs {
					fmt.Fprintf(e.out, "%s\t%s\n", r.Kind, r.Name)
				}
				return nil
			}
			results, err := db.Search(query, int(cmd.Int("limit")))
			if err != nil {
				return err
			}
			for _, r := range results {
				fmt.Fprintf(e.out, "%s\t%s\t%d\t%s\n", r.Kind, r.Name, r.Position, r.Key)
			}
			return nil
		},
	}
}

// parseIndices reads a comma-separated list of item indices.
func parseIndices(text string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: bad index %q", apperr.ErrValidation, part)
		}
		out = append(out, n)
	}
	slices.Sort(out)
	return slices.Compact(out), nil
}

// parseAssignments reads FIELD=VALUE pairs.
func parseAssignments(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		field, value, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(field) == "" {
			return nil, fmt.Errorf("%w: expected FIELD=VALUE, got %q", apperr.ErrValidation, p)
		}
		out[strings.TrimSpace(field)] = value
	}
	return out, nil
}
