package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelvault/internal/backend"
	"modelvault/internal/classify"
	"modelvault/internal/config"
	"modelvault/internal/orchestrator"
	"modelvault/internal/router"
	"modelvault/internal/telemetry"
	"modelvault/pkg/types"
)

func runCmd(cfgPath, logLevel *string) *cobra.Command {
	var text string
	var imagePath string
	var noStream bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one inference, or start an interactive session",
		Example: "  modelvault run --text \"Tell me a joke\"\n" +
			"  modelvault run --text \"What is in this picture?\" --image photo.png\n" +
			"  modelvault run   # no flags: interactive session, /bye to exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*cfgPath, *logLevel)
			if err != nil {
				return err
			}
			log := newLogger(cfg.LogLevel)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			orch := buildPipeline(cfg, log)

			if text == "" && imagePath == "" {
				return runInteractive(ctx, orch, log)
			}

			req := types.GenerateRequest{Text: text, Stream: !noStream}
			if imagePath != "" {
				img, err := os.ReadFile(imagePath)
				if err != nil {
					return fmt.Errorf("reading image: %w", err)
				}
				req.Image = img
			}
			return runOnce(ctx, orch, log, req)
		},
	}
	cmd.Flags().StringVarP(&text, "text", "t", "", "Text query to process")
	cmd.Flags().StringVarP(&imagePath, "image", "i", "", "Path to an input image (routes to the vision model)")
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Buffer the full response instead of streaming")
	return cmd
}

func buildPipeline(cfg config.Config, log zerolog.Logger) *orchestrator.Orchestrator {
	client := backend.New(cfg.BackendURL, time.Duration(cfg.RequestTimeoutSeconds)*time.Second, log)
	return orchestrator.New(
		classify.New(),
		router.New(router.Bindings{
			General: cfg.ModelGeneral,
			Coding:  cfg.ModelCoding,
			Vision:  cfg.ModelVision,
		}),
		client,
		telemetry.NewState(),
		log,
	)
}

func runOnce(ctx context.Context, orch *orchestrator.Orchestrator, log zerolog.Logger, req types.GenerateRequest) error {
	var sink func(types.GenerationChunk) error
	if req.Stream {
		sink = func(ch types.GenerationChunk) error {
			fmt.Print(ch.Text)
			return nil
		}
	}
	result, err := orch.Generate(ctx, req, sink)
	if err != nil {
		return err
	}
	if req.Stream {
		fmt.Println()
	} else {
		fmt.Println(result.Response)
	}
	log.Info().Str("role", string(result.Role)).Str("model", result.Model).
		Int("chunks", result.Chunks).Msg("inference completed")
	return nil
}

// runInteractive reads prompts from stdin in a loop, streaming each response
// to stdout. An inference error is printed and the session continues; the
// session ends on /bye, exit, quit, EOF, or signal.
func runInteractive(ctx context.Context, orch *orchestrator.Orchestrator, log zerolog.Logger) error {
	fmt.Println("modelvault interactive session. Type /bye to exit.")
	sc := bufio.NewScanner(os.Stdin)
	sink := func(ch types.GenerationChunk) error {
		fmt.Print(ch.Text)
		return nil
	}
	for {
		fmt.Print("\n> ")
		if !sc.Scan() {
			fmt.Println()
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "/bye", "exit", "quit":
			fmt.Println("bye")
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
		result, err := orch.Generate(ctx, types.GenerateRequest{Text: line, Stream: true}, sink)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			fmt.Printf("\nerror: %v\n", err)
			continue
		}
		fmt.Println()
		log.Debug().Str("role", string(result.Role)).Str("model", result.Model).
			Int("chunks", result.Chunks).Msg("inference completed")
	}
}
