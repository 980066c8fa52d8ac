package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/marrowsec/bloodowned/internal/batch"
	"github.com/marrowsec/bloodowned/internal/config"
	"github.com/marrowsec/bloodowned/internal/graph"
	"github.com/marrowsec/bloodowned/internal/owned"
	"github.com/marrowsec/bloodowned/internal/principal"
	"github.com/marrowsec/bloodowned/internal/ui"
)

// Set via ldflags at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func buildVersion() string {
	if commit == "none" {
		return version
	}
	return fmt.Sprintf("%s (%s, %s)", version, commit, date)
}

// connFlags holds the persistent connection overrides. Empty values
// fall back to the config file, then to the stock defaults.
type connFlags struct {
	target   string
	user     string
	password string
}

// printerFunc builds the immutable presentation config for a command
// run, after flags are parsed.
type printerFunc func() *ui.Printer

func main() {
	var (
		noColor bool
		debug   bool
		conn    connFlags
	)

	newPrinter := func() *ui.Printer {
		return ui.NewPrinter(ui.Options{
			NoColor:     noColor || os.Getenv("NO_COLOR") != "",
			Interactive: ui.StdoutIsInteractive(),
			Debug:       debug,
		})
	}

	rootCmd := &cobra.Command{
		Use:   "bloodowned",
		Short: "Mark and track owned principals in a BloodHound Neo4j database",
		Long: "bloodowned resolves user and computer identifiers against a BloodHound " +
			"identity graph and toggles their owned flag for downstream attack-path analysis. " +
			"Identifiers may be exact names, alternate names, object IDs, or substrings; " +
			"a trailing '$' denotes a machine account.",
		SilenceUsage: true,
	}
	rootCmd.Version = buildVersion()

	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&noColor, "no-color", false, "Disable colored output")
	pf.BoolVar(&debug, "debug", false, "Enable debug logging")
	pf.StringVarP(&conn.target, "target", "t", "", "Neo4j URI (default "+config.DefaultTarget+")")
	pf.StringVarP(&conn.user, "user", "u", "", "Neo4j username (default "+config.DefaultUsername+")")
	pf.StringVarP(&conn.password, "password", "p", "", "Neo4j password (default from config file)")

	rootCmd.AddCommand(markCmd(newPrinter, &conn, false))
	rootCmd.AddCommand(markCmd(newPrinter, &conn, true))
	rootCmd.AddCommand(listCmd(newPrinter, &conn))
	rootCmd.AddCommand(searchCmd(newPrinter, &conn))
	rootCmd.AddCommand(configCmd(newPrinter))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConn merges flag overrides over the config file over defaults.
func loadConn(flags *connFlags) (config.Config, error) {
	cfg, err := config.Load(config.Home())
	if err != nil {
		return config.Config{}, err
	}
	if flags.target != "" {
		cfg.Target = flags.target
	}
	if flags.user != "" {
		cfg.Username = flags.user
	}
	if flags.password != "" {
		cfg.Password = flags.password
	}
	return cfg, nil
}

// openSession connects and acquires the single session for this
// invocation. The caller closes both on every exit path.
func openSession(ctx context.Context, flags *connFlags) (*graph.DB, *graph.Session, error) {
	cfg, err := loadConn(flags)
	if err != nil {
		return nil, nil, err
	}
	db, err := graph.Connect(ctx, graph.Config{
		URI:      cfg.Target,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return nil, nil, err
	}
	return db, db.Session(ctx), nil
}

func markCmd(newPrinter printerFunc, conn *connFlags, remove bool) *cobra.Command {
	var file string

	use := "mark [identifier...]"
	short := "Mark principals as owned"
	example := "  bloodowned mark 'alice@corp.local'\n" +
		"  bloodowned mark 'SRV01$' bob.smith\n" +
		"  bloodowned mark -f cracked.txt\n" +
		"  cat cracked.txt | bloodowned mark -f -"
	if remove {
		use = "unmark [identifier...]"
		short = "Clear the owned flag on principals"
		example = "  bloodowned unmark 'alice@corp.local'\n" +
			"  bloodowned unmark -f stale.txt"
	}

	cmd := &cobra.Command{
		Use:     use,
		Short:   short,
		Example: example,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter()

			ids := append([]string(nil), args...)
			if file != "" {
				fromFile, err := batch.ReadIdentifiers(file)
				if err != nil {
					return err
				}
				ids = append(ids, fromFile...)
			}
			if len(ids) == 0 {
				return errors.New("no identifiers supplied (pass arguments or --file)")
			}

			ctx := cmd.Context()
			db, sess, err := openSession(ctx, conn)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			defer sess.Close(ctx)
			p.Debugf("processing %d identifier(s)", len(ids))

			coord := &batch.Coordinator{
				Resolver: principal.NewResolver(sess),
				Store:    owned.NewStore(sess),
			}
			outcomes, procErr := coord.Process(ctx, ids, remove)
			for _, out := range outcomes {
				reportOutcome(p, out)
			}
			// Per-identifier failures are report lines; procErr is a
			// fatal store failure after the reported partial progress.
			return procErr
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Line-delimited identifier file ('-' for stdin)")
	return cmd
}

func reportOutcome(p *ui.Printer, out batch.Outcome) {
	switch {
	case out.Err != nil:
		p.Failure("%v", out.Err)
	case !out.Changed:
		p.Failure("%s (%s) could not be updated", out.Name, out.Type)
	case out.Removed:
		p.Success("Cleared owned flag on %s (%s)", out.Name, out.Type)
	default:
		p.Success("Marked %s (%s) as owned", out.Name, out.Type)
	}
}

func listCmd(newPrinter printerFunc, conn *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all owned principals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter()

			ctx := cmd.Context()
			db, sess, err := openSession(ctx, conn)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			defer sess.Close(ctx)

			principals, err := owned.NewQuery(sess).List(ctx)
			if err != nil {
				return err
			}
			if len(principals) == 0 {
				p.EmptyState("No owned principals.")
				return nil
			}

			rows := make([][]string, 0, len(principals))
			for _, pr := range principals {
				high := ""
				if pr.HighValue {
					high = "yes"
				}
				rows = append(rows, []string{
					pr.Name,
					pr.Type.String(),
					high,
					strconv.FormatInt(pr.ControlCount, 10),
				})
			}
			p.Table([]string{"NAME", "TYPE", "HIGH VALUE", "CONTROLS"}, rows)
			return nil
		},
	}
}

func searchCmd(newPrinter printerFunc, conn *connFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <pattern>",
		Short: "Search owned principals by name, alternate name, or object ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter()

			ctx := cmd.Context()
			db, sess, err := openSession(ctx, conn)
			if err != nil {
				return err
			}
			defer db.Close(ctx)
			defer sess.Close(ctx)

			names, err := owned.NewQuery(sess).Search(ctx, args[0])
			if err != nil {
				return err
			}
			if len(names) == 0 {
				p.EmptyState("No owned principals matched.")
				return nil
			}
			for _, name := range names {
				p.Record(name)
			}
			return nil
		},
	}
}

func configCmd(newPrinter printerFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage stored connection settings",
	}
	cmd.AddCommand(configInitCmd(newPrinter))
	cmd.AddCommand(configShowCmd(newPrinter))
	return cmd
}

func configInitCmd(newPrinter printerFunc) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter()
			home := config.Home()
			if err := config.Init(home, force); err != nil {
				return err
			}
			p.Success("Config written to %s", home)
			p.Warning("The default password is a stock value; edit the config before use against a hardened database")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func configShowCmd(newPrinter printerFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective connection settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := newPrinter()
			cfg, err := config.Load(config.Home())
			if err != nil {
				return err
			}
			p.Info("Target:   %s", cfg.Target)
			p.Info("Username: %s", cfg.Username)
			p.Info("Password: %s", maskPassword(cfg.Password))
			return nil
		},
	}
}

func maskPassword(pw string) string {
	if pw == config.DefaultPassword {
		return "(default)"
	}
	if pw == "" {
		return "(empty)"
	}
	return "********"
}
