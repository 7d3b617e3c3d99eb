package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
	"unicode/utf8"

	"github.com/urfave/cli/v2"

	"github.com/wadjakorntonsri/go-snippet-bin/pkg/app"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/config"
	"github.com/wadjakorntonsri/go-snippet-bin/pkg/core/domain"
)

// exportRecord is one entry of an export: the metadata row plus its payload.
// Payloads that are not valid UTF-8 go in ContentBase64 so they survive the
// JSON round trip byte for byte.
type exportRecord struct {
	domain.Snippet
	Content       string `json:"content,omitempty"`
	ContentBase64 []byte `json:"content_base64,omitempty"`
}

func newExportRecord(row domain.Snippet, data []byte) exportRecord {
	if utf8.Valid(data) {
		return exportRecord{Snippet: row, Content: string(data)}
	}
	return exportRecord{Snippet: row, ContentBase64: data}
}

func (r exportRecord) payload() []byte {
	if r.ContentBase64 != nil {
		return r.ContentBase64
	}
	return []byte(r.Content)
}

func newApp(stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "snippetctl",
		Usage:     "Operate a snippet bin's stores directly",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Abort the command after this long",
				Value: 5 * time.Minute,
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "sweep",
				Usage: "Remove expired snippets now",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "dry-run",
						Usage: "Report what would be removed without deleting",
					},
				},
				Action: sweepAction,
			},
			{
				Name:   "stats",
				Usage:  "Show total, active and expired counts",
				Action: statsAction,
			},
			{
				Name:  "export",
				Usage: "Write every snippet, payload included, as JSON",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "out",
						Aliases: []string{"o"},
						Usage:   "Output file (default stdout)",
					},
				},
				Action: exportAction,
			},
			{
				Name:  "import",
				Usage: "Load snippets from an export, skipping ids that already exist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "JSON file produced by export",
						Required: true,
					},
				},
				Action: importAction,
			},
		},
	}
}

// withApp loads config, opens the stores and runs fn against them.
func withApp(c *cli.Context, fn func(ctx context.Context, a *app.App) error) error {
	cfg := config.Load()
	cfg.MetadataCacheSize = 0 // one-shot commands gain nothing from caching
	logger := config.NewLogger(cfg, c.App.ErrWriter)
	slog.SetDefault(logger)

	ctx, cancel := context.WithTimeout(c.Context, c.Duration("timeout"))
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return fn(ctx, a)
}

func sweepAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		now := a.Clock.Now()
		if c.Bool("dry-run") {
			stats, err := a.Sweeper.Stats(ctx, now)
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "Would remove %d expired snippet(s)\n", stats.Expired)
			return nil
		}

		deleted, err := a.Sweeper.Sweep(ctx, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Removed %d expired snippet(s)\n", deleted)
		return nil
	})
}

func statsAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		stats, err := a.Sweeper.Stats(ctx, a.Clock.Now())
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Total:   %d\n", stats.Total)
		fmt.Fprintf(c.App.Writer, "Active:  %d\n", stats.Active)
		fmt.Fprintf(c.App.Writer, "Expired: %d\n", stats.Expired)
		return nil
	})
}

func exportAction(c *cli.Context) error {
	return withApp(c, func(ctx context.Context, a *app.App) error {
		rows, err := a.Meta.Dump(ctx)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		records := make([]exportRecord, 0, len(rows))
		for _, row := range rows {
			data, err := a.Content.Get(ctx, row.ContentKey)
			if err != nil {
				if errors.Is(err, domain.ErrContentNotFound) {
					slog.Warn("skipping snippet without payload", slog.String("id", row.ID))
					continue
				}
				return err
			}
			records = append(records, newExportRecord(row, data))
		}

		out := c.App.Writer
		if path := c.String("out"); path != "" {
			f, err := os.Create(path)
			if err != nil {
				return err
			}
			defer f.Close()
			out = f
		}

		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	})
}

func importAction(c *cli.Context) error {
	file, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var records []exportRecord
	if err := json.NewDecoder(file).Decode(&records); err != nil {
		return fmt.Errorf("decode failed: %w", err)
	}

	return withApp(c, func(ctx context.Context, a *app.App) error {
		imported, skipped := 0, 0
		for _, rec := range records {
			exists, err := a.Meta.Exists(ctx, rec.ID)
			if err != nil {
				return err
			}
			if exists {
				skipped++
				continue
			}

			row := rec.Snippet
			row.ContentKey = domain.ContentKey(row.ID)
			if err := a.Content.Put(ctx, row.ContentKey, rec.payload()); err != nil {
				// A payload already under this key belongs to someone else
				if errors.Is(err, domain.ErrContentExists) {
					skipped++
					continue
				}
				return err
			}
			if err := a.Meta.Insert(ctx, &row); err != nil {
				if delErr := a.Content.Delete(context.WithoutCancel(ctx), row.ContentKey); delErr != nil {
					slog.Warn("failed to remove payload after insert error",
						slog.String("id", row.ID), slog.String("error", delErr.Error()))
				}
				if errors.Is(err, domain.ErrDuplicateID) {
					skipped++
					continue
				}
				return err
			}
			imported++
		}
		fmt.Fprintf(c.App.Writer, "Imported %d snippet(s), skipped %d existing\n", imported, skipped)
		return nil
	})
}
