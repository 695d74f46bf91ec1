package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/matheus3301/wxread/internal/app"
	"github.com/matheus3301/wxread/internal/bus"
	"github.com/matheus3301/wxread/internal/config"
	"github.com/matheus3301/wxread/internal/export"
	"github.com/matheus3301/wxread/internal/model"
	"github.com/spf13/cobra"
)

type rootFlags struct {
	params  app.Params
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "wxread",
		Short:         "Read contacts and chat history from a messaging app device snapshot",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&f.params.ConfigPath, "config", "", "config file (default ~/.wxread/config.toml)")
	pf.StringVar(&f.params.BackupDir, "backup", "", "account directory, or device backup root with --layout itunes")
	pf.StringVar(&f.params.Layout, "layout", "", `snapshot layout: "dir" or "itunes"`)
	pf.StringVar(&f.params.UserDir, "user-dir", "", "account directory inside the backup domain (itunes layout)")
	pf.StringVar(&f.params.LogLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.BoolVar(&f.jsonOut, "json", false, "output in JSON format")

	root.AddCommand(
		newUserCmd(f),
		newContactsCmd(f),
		newSessionsCmd(f),
		newRecordsCmd(f),
		newExportCmd(f),
		newConfigCmd(f),
	)
	return root
}

func run(cmd *cobra.Command, f *rootFlags, fn func(context.Context, app.Deps) error) error {
	return app.Run(cmd.Context(), f.params, fn)
}

func newUserCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "user",
		Short: "Show the local user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f, func(_ context.Context, d app.Deps) error {
				me, err := d.Reader.User()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f.jsonOut {
					return outputJSON(out, me)
				}
				fmt.Fprintf(out, "User:     %s\n", me.UsrName)
				fmt.Fprintf(out, "Alias:    %s\n", me.Alias)
				fmt.Fprintf(out, "Nickname: %s\n", me.NickName)
				fmt.Fprintf(out, "Portrait: %s\n", me.Portrait)
				return nil
			})
		},
	}
}

func newContactsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "contacts",
		Short: "List contacts from both contact stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f, func(_ context.Context, d app.Deps) error {
				contacts, err := d.Reader.Contacts()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f.jsonOut {
					return outputJSON(out, contacts)
				}
				if len(contacts) == 0 {
					fmt.Fprintln(out, "No contacts found.")
					return nil
				}
				for _, c := range contacts {
					fmt.Fprintf(out, "%-32s %-20s %s\n", c.UsrName, c.Alias, c.DisplayName())
				}
				return nil
			})
		},
	}
}

type sessionRow struct {
	Hash        string `json:"hash"`
	UsrName     string `json:"usr_name,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

func newSessionsCmd(f *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List conversations with stored history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f, func(_ context.Context, d app.Deps) error {
				hashes, err := d.Reader.Sessions()
				if err != nil {
					return err
				}
				ix, err := d.Reader.Index()
				if err != nil {
					return err
				}
				rows := make([]sessionRow, 0, len(hashes))
				for _, h := range hashes {
					row := sessionRow{Hash: h}
					if p, ok := ix.Resolve(h); ok {
						row.UsrName = p.UsrName
						row.DisplayName = p.DisplayName()
					}
					rows = append(rows, row)
				}
				out := cmd.OutOrStdout()
				if f.jsonOut {
					return outputJSON(out, rows)
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No sessions found.")
					return nil
				}
				for _, r := range rows {
					fmt.Fprintf(out, "%s %s\n", r.Hash, r.DisplayName)
				}
				return nil
			})
		},
	}
}

func newRecordsCmd(f *rootFlags) *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "records <name|alias|hash>",
		Short: "Print the messages of one conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, f, func(_ context.Context, d app.Deps) error {
				_, records, err := d.Reader.Conversation(args[0])
				if err != nil {
					return err
				}
				if !raw {
					model.SortChronological(records)
				}
				out := cmd.OutOrStdout()
				if f.jsonOut {
					return outputJSON(out, records)
				}
				for _, r := range records {
					dir := "<"
					if r.Sent() {
						dir = ">"
					}
					fmt.Fprintf(out, "%s %s [%s] %s\n", r.Time().UTC().Format("2006-01-02 15:04:05"), dir, r.Kind(), r.Message)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "keep storage order instead of sorting by time")
	return cmd
}

func newExportCmd(f *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every conversation to JSON files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, f, func(ctx context.Context, d app.Deps) error {
				stop := func() {}
				if !f.jsonOut {
					stop = printProgress(cmd.ErrOrStderr(), d.Events)
				}
				m, err := d.Exporter.Run(ctx)
				stop()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f.jsonOut {
					return outputJSON(out, m)
				}
				fmt.Fprintf(out, "Exported %d sessions to %s (run %s)\n", len(m.Sessions), d.Config.OutputDir, m.RunID)
				if len(m.Unresolved) > 0 {
					fmt.Fprintf(out, "%d sessions have no matching contact\n", len(m.Unresolved))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.params.OutputDir, "out", "", "output directory")
	return cmd
}

func newConfigCmd(f *rootFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the config file",
	}
	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write a config file from the given flags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := f.params.ConfigPath
			if path == "" {
				path = config.DefaultPath()
			}
			cfg := config.Default()
			for dst, v := range map[*string]string{
				&cfg.BackupDir: f.params.BackupDir,
				&cfg.Layout:    f.params.Layout,
				&cfg.UserDir:   f.params.UserDir,
				&cfg.LogLevel:  f.params.LogLevel,
			} {
				if v != "" {
					*dst = v
				}
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return cfgCmd
}

// printProgress reports exported sessions on w until the returned function
// is called.
func printProgress(w io.Writer, b *bus.Bus) (stop func()) {
	events, unsub := b.Subscribe(bus.ExportSession, 64)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range events {
			if p, ok := evt.Payload.(export.Progress); ok {
				fmt.Fprintf(w, "[%d/%d] %s (%d messages)\n", p.Done, p.Total, p.Session.DisplayName, p.Session.Records)
			}
		}
	}()
	return func() {
		unsub()
		<-done
	}
}

func outputJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
