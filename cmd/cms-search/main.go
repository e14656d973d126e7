// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Command cms-search publishes sentences to a Vertex AI Vector Search index and answers
// questions from them with Gemini.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"

	"github.com/go-a2a/cms-search/internal/config"
	"github.com/go-a2a/cms-search/internal/gcs"
	"github.com/go-a2a/cms-search/internal/vertexai"
	"github.com/go-a2a/cms-search/pipeline"
	"github.com/go-a2a/cms-search/pkg/logging"
)

var usage = heredoc.Doc(`
	Usage: cms-search [flags] <command> [args]

	Commands:
	  init             write the default configuration to the -config path
	  publish          embed sentences, upload them and deploy the index
	  query [text]     answer a question from the deployed index
	  run [text]       publish, then query

	Flags:
`)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "cms-search: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("cms-search", flag.ContinueOnError)
	fs.SetOutput(stderr)
	cfgPath := fs.String("config", "cms-search.yaml", "path to config YAML")
	envFile := fs.String("env", ".env", "path to a .env file")
	sentencesPath := fs.String("sentences", "", "file with one sentence per line (default: demo sentences)")
	resync := fs.Bool("resync", false, "resubmit the metadata of an existing index")
	fs.Usage = func() {
		fmt.Fprint(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return errors.New("missing command")
	}
	cmd, rest := fs.Arg(0), fs.Args()[1:]

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.New(stderr, cfg.LogLevel, cfg.LogFormat)
	ctx = logging.NewContext(ctx, logger)

	if cmd == "init" {
		if err := config.Save(*cfgPath, cfg); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(stdout, "wrote %s\n", *cfgPath)
		return nil
	}

	query := pipeline.DefaultQuery
	if len(rest) > 0 {
		query = strings.Join(rest, " ")
	}

	switch cmd {
	case "publish", "query", "run":
	default:
		fs.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}

	p, closeAll, err := newPipeline(ctx, cfg, logger, *resync)
	if err != nil {
		return err
	}
	defer closeAll()

	if cmd == "publish" || cmd == "run" {
		sentences := pipeline.DefaultSentences
		if *sentencesPath != "" {
			if sentences, err = readSentences(*sentencesPath); err != nil {
				return err
			}
		}
		res, err := p.Publish(ctx, sentences)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Deployed index %s to %s (deployed index id %s)\n", res.IndexName, res.PublicDomain, res.DeployedIndex)
	}

	if cmd == "query" || cmd == "run" {
		res, err := p.Query(ctx, query)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "Found nearest neighbor ids for query '%s':\n\t%s\n\n", res.Query, strings.Join(res.NeighborIDs, ", "))
		fmt.Fprintf(stdout, "Generated context:\n%s\n\n", res.Context)
		for i, answer := range res.Answers {
			fmt.Fprintf(stdout, "Answer %d: %s\n", i+1, strings.Join(answer, ""))
		}
	}

	return nil
}

func newPipeline(ctx context.Context, cfg *config.Config, logger *slog.Logger, resync bool) (*pipeline.Pipeline, func(), error) {
	vertex, err := vertexai.NewClient(ctx, cfg,
		vertexai.WithLogger(logger),
		vertexai.WithIndexResync(resync),
	)
	if err != nil {
		return nil, nil, err
	}

	storage, err := gcs.NewService(ctx, cfg.ProjectID,
		gcs.WithLogger(logger),
		gcs.WithConcurrency(cfg.UploadConcurrency),
	)
	if err != nil {
		vertex.Close()
		return nil, nil, err
	}

	closeAll := func() {
		if err := storage.Close(); err != nil {
			logger.Error("Failed to close storage service", slog.String("error", err.Error()))
		}
		if err := vertex.Close(); err != nil {
			logger.Error("Failed to close Vertex AI client", slog.String("error", err.Error()))
		}
	}

	p, err := pipeline.New(ctx, cfg, vertex.Embedding(), storage, vertex.VectorSearch(), vertex.GenerativeModel(),
		pipeline.WithLogger(logger),
	)
	if err != nil {
		closeAll()
		return nil, nil, err
	}
	return p, closeAll, nil
}

// readSentences returns the non-blank lines of path.
func readSentences(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sentences: %w", err)
	}
	defer f.Close()

	var sentences []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			sentences = append(sentences, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sentences: %w", err)
	}
	return sentences, nil
}
