// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package main

import (
	"context"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/lattice/ai"
	"github.com/poiesic/lattice/ai/openai"
	"github.com/poiesic/lattice/bus"
	"github.com/poiesic/lattice/compose"
	"github.com/poiesic/lattice/core"
	"github.com/poiesic/lattice/notesidx"
	"github.com/poiesic/lattice/storage"
	"github.com/poiesic/lattice/storage/badger"
	"github.com/poiesic/lattice/tree"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "lattice",
		Usage: "Semantic ingestion and indexing pipeline for document collections",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "seed",
				Usage:  "Import a directory of source files into the content store",
				Action: seedCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "Directory of files to import",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "prefix",
						Usage: "Store path prefix for imported files",
						Value: "corpus",
					},
				},
			},
			{
				Name:   "add-note",
				Usage:  "Store a note and register it for indexing",
				Action: addNoteCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "path",
						Usage:    "Store path for the note",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "file",
						Aliases:  []string{"f"},
						Usage:    "File holding the note contents",
						Required: true,
					},
				},
			},
			{
				Name:   "compose",
				Usage:  "Run an ingestion over a folder of stored content",
				Action: composeCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "root",
						Aliases:  []string{"r"},
						Usage:    "Store path of the folder to compose",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "name",
						Usage: "Collection name",
						Value: "default",
					},
					&cli.BoolFlag{
						Name:  "graph",
						Usage: "Also extract knowledge-graph entities from each file",
					},
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Reindex items that already have embeddings",
					},
					&cli.IntFlag{
						Name:  "width",
						Usage: "Concurrency window size",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "window-delay",
						Usage: "Pause between concurrency windows",
						Value: 300 * time.Millisecond,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N items",
						Value: 5,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "completion-host",
						Usage: "Completion service host URL for entity extraction (defaults to embedding-host)",
					},
					&cli.StringFlag{
						Name:  "completion-model",
						Usage: "Completion model name for entity extraction",
					},
				},
			},
			{
				Name:   "index-notes",
				Usage:  "Run one corpus-wide notes indexing job",
				Action: indexNotesCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "db",
						Aliases:  []string{"d"},
						Usage:    "Path to BadgerDB database directory",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:  "embedding-model",
						Usage: "Embedding model name (omit to delegate embedding over redis)",
					},
					&cli.StringFlag{
						Name:  "redis",
						Usage: "Redis address for status events and remote embedding",
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Safety timeout for the job",
						Value: notesidx.DefaultTimeout,
					},
				},
			},
			{
				Name:   "embed-worker",
				Usage:  "Serve embed requests from a remote notes coordinator",
				Action: embedWorkerCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "redis",
						Usage:    "Redis address to listen on",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "embedding-host",
						Usage: "Embedding service host URL",
						Value: "http://localhost:11434/v1",
					},
					&cli.StringFlag{
						Name:     "embedding-model",
						Usage:    "Embedding model name",
						Required: true,
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func seedCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := badger.NewStore(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	writer, ok := store.(storage.ContentWriter)
	if !ok {
		return fmt.Errorf("store does not accept content writes")
	}

	source := c.String("source")
	prefix := strings.TrimSuffix(c.String("prefix"), "/")

	count := 0
	err = filepath.WalkDir(source, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		contents, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		storePath := prefix + "/" + filepath.ToSlash(rel)
		if err := writer.PutContent(ctx, storePath, string(contents)); err != nil {
			return fmt.Errorf("storing %s: %w", storePath, err)
		}
		count++
		return nil
	})
	if err != nil {
		return fmt.Errorf("seeding failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Imported %d files under %s\n", count, prefix)
	return nil
}

func addNoteCommand(c *cli.Context) error {
	ctx := context.Background()

	store, err := badger.NewStore(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	writer, ok := store.(storage.ContentWriter)
	if !ok {
		return fmt.Errorf("store does not accept content writes")
	}

	contents, err := os.ReadFile(c.String("file"))
	if err != nil {
		return fmt.Errorf("reading note contents: %w", err)
	}

	path := c.String("path")
	noteID := core.IDFromContent(path)
	if err := writer.PutContent(ctx, path, string(contents)); err != nil {
		return fmt.Errorf("storing note: %w", err)
	}
	if err := writer.RegisterNote(ctx, noteID, path); err != nil {
		return fmt.Errorf("registering note: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Registered note %d at %s\n", noteID, path)
	return nil
}

func composeCommand(c *cli.Context) error {
	ctx := signalContext()

	store, err := badger.NewStore(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	embeddingHost := c.String("embedding-host")
	completionHost := c.String("completion-host")
	if completionHost == "" {
		completionHost = embeddingHost
	}

	completionModel := c.String("completion-model")
	if c.Bool("graph") && completionModel == "" {
		return fmt.Errorf("completion-model is required with --graph")
	}
	if completionModel == "" {
		// Completion settings are unused without graph extraction.
		completionModel = "unused"
	}

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(embeddingHost),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionHost(completionHost),
		ai.WithCompletionModel(completionModel),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}

	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	root := c.String("root")
	tr := tree.New()
	collectionID := core.IDFromContent(c.String("name"))
	folderID := core.IDFromContent(root)

	err = tr.AddCollection(core.Collection{
		Id:     collectionID,
		Name:   c.String("name"),
		Status: core.CollectionDraft,
		Entries: []core.Entry{
			{Id: folderID, Kind: core.EntryFolder},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to build collection: %w", err)
	}
	if err := tr.AddFolder(collectionID, core.Folder{Id: folderID, Path: root}); err != nil {
		return fmt.Errorf("failed to add folder: %w", err)
	}

	opts := []compose.ComposerOption{
		compose.WithNotifier(compose.NewLogNotifier(slog.Default())),
		compose.WithScheduler(&compose.SchedulerConfig{
			Width:          c.Int("width"),
			WindowDelay:    c.Duration("window-delay"),
			ReportInterval: c.Int("report-interval"),
		}),
	}
	if c.Bool("graph") {
		completer, err := openai.NewCompleter(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create completer: %w", err)
		}
		opts = append(opts, compose.WithCompleter(completer))
	}

	composer, err := compose.NewComposer(store, embedder, tr, opts...)
	if err != nil {
		return fmt.Errorf("failed to create composer: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Root: %s\n", root)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintln(os.Stderr)

	summary, err := composer.Compose(ctx, collectionID, c.Bool("force"))
	if err != nil {
		return fmt.Errorf("composition failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Indexed %d items, %d errors\n", summary.Success, summary.Error)
	return nil
}

func indexNotesCommand(c *cli.Context) error {
	ctx := signalContext()

	store, err := badger.NewStore(c.String("db"), false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	opts := []notesidx.CoordinatorOption{
		notesidx.WithConfig(notesidx.Config{Timeout: c.Duration("timeout")}),
	}

	if model := c.String("embedding-model"); model != "" {
		aiConfig := ai.NewConfig(
			ai.WithEmbeddingHost(c.String("embedding-host")),
			ai.WithEmbeddingModel(model),
			ai.WithCompletionHost(c.String("embedding-host")),
			ai.WithCompletionModel("unused"),
		)
		if err := aiConfig.Validate(); err != nil {
			return fmt.Errorf("invalid AI configuration: %w", err)
		}
		embedder, err := openai.NewEmbedder(aiConfig)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		opts = append(opts, notesidx.WithEmbedder(embedder))
	}

	if addr := c.String("redis"); addr != "" {
		b, err := bus.NewRedisBus(addr)
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		defer b.Close()
		opts = append(opts, notesidx.WithBus(b))
	}

	coordinator, err := notesidx.NewCoordinator(store, opts...)
	if err != nil {
		return fmt.Errorf("failed to create coordinator: %w", err)
	}
	defer coordinator.Close()

	result, err := coordinator.Run(ctx)
	if err != nil {
		return fmt.Errorf("notes indexing failed: %w", err)
	}
	if result.Skipped {
		fmt.Fprintln(os.Stderr, "A notes job is already active")
		return nil
	}

	fmt.Fprintf(os.Stderr, "Job %s: %d indexed, %d errors\n",
		result.Status, result.Summary.Success, result.Summary.Error)
	return nil
}

func embedWorkerCommand(c *cli.Context) error {
	ctx := signalContext()

	aiConfig := ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithCompletionHost(c.String("embedding-host")),
		ai.WithCompletionModel("unused"),
	)
	if err := aiConfig.Validate(); err != nil {
		return fmt.Errorf("invalid AI configuration: %w", err)
	}
	embedder, err := openai.NewEmbedder(aiConfig)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	b, err := bus.NewRedisBus(c.String("redis"))
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer b.Close()

	worker, err := notesidx.NewWorker(b, embedder, slog.Default())
	if err != nil {
		return fmt.Errorf("failed to create worker: %w", err)
	}
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	defer worker.Stop()

	fmt.Fprintln(os.Stderr, "Embed worker running, press Ctrl-C to stop")
	<-ctx.Done()
	return nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
