package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/mikeboe/deep-research/pkg/clients"
	"github.com/mikeboe/deep-research/pkg/config"
	"github.com/mikeboe/deep-research/pkg/generation"
	"github.com/mikeboe/deep-research/pkg/research"
	"github.com/mikeboe/deep-research/pkg/retrieval"
	"github.com/mikeboe/deep-research/pkg/splitter"
)

var (
	topic      string
	breadth    int
	depth      int
	outputPath string
)

func main() {
	// Setup structured logging
	handler := slog.NewTextHandler(os.Stdout, nil)
	slog.SetDefault(slog.New(handler))

	// Load .env file
	if err := godotenv.Load(); err != nil {
		// It's okay if .env doesn't exist, as long as env vars are set
	}

	cfg := config.Load()

	rootCmd := &cobra.Command{
		Use:   "deep-research",
		Short: "A terminal-based recursive research agent",
		Long:  `deep-research expands a topic into sub-queries, researches them recursively with shrinking depth and breadth, and assembles the findings into a markdown report.`,
		Run: func(cmd *cobra.Command, args []string) {
			if !cmd.Flags().Changed("topic") {
				// Interactive Mode
				reader := bufio.NewReader(os.Stdin)

				fmt.Print("Enter research topic: ")
				input, _ := reader.ReadString('\n')
				topic = strings.TrimSpace(input)
				if topic == "" {
					slog.Error("Topic cannot be empty")
					os.Exit(1)
				}

				fmt.Printf("Enter research breadth (recommended 2-10, default %d): ", breadth)
				input, _ = reader.ReadString('\n')
				if v, err := strconv.Atoi(strings.TrimSpace(input)); err == nil && v > 0 {
					breadth = v
				}

				fmt.Printf("Enter research depth (recommended 1-5, default %d): ", depth)
				input, _ = reader.ReadString('\n')
				if v, err := strconv.Atoi(strings.TrimSpace(input)); err == nil && v > 0 {
					depth = v
				}
			} else if topic == "" {
				slog.Error("--topic flag provided but empty")
				os.Exit(1)
			}

			slog.Info("Starting research", "topic", topic, "breadth", breadth, "depth", depth)

			ctx := context.Background()

			llm, err := clients.GoogleAi(ctx, clients.ModelType(cfg.FastModel))
			if err != nil {
				slog.Error("Error initializing LLM client", "error", err)
				os.Exit(1)
			}

			gen := generation.New(llm, cfg.FastModel, slog.Default())

			retriever := retrieval.NewHTTP()
			retriever.OCR = retrieval.NewOCR(&http.Client{Timeout: retriever.Client.Timeout}, os.Getenv("MISTRAL_API_KEY"))

			engine := research.NewEngine(gen, retriever, slog.Default())
			engine.Processor.Splitter = splitter.NewRecursiveCharacterTextSplitter(cfg.WindowSize, cfg.WindowOverlap)
			engine.Concurrency = cfg.Concurrency
			engine.MaxVisitedURLs = cfg.MaxVisitedURLs
			engine.LearningsPerBranch = cfg.LearningsPerTask
			engine.OnProgress = func(p research.Progress) {
				slog.Info("Progress",
					"depth", p.CurrentDepth,
					"breadth", p.CurrentBreadth,
					"completed", p.CompletedQueries,
					"total", p.TotalQueries,
					"query", p.CurrentQuery,
				)
			}

			result, err := engine.Research(ctx, topic, depth, breadth, nil)
			if err != nil {
				slog.Error("Error running research", "error", err)
				os.Exit(1)
			}

			if err := os.WriteFile(outputPath, []byte(result.Content), 0644); err != nil {
				slog.Error("Failed to save report", "path", outputPath, "error", err)
				os.Exit(1)
			}

			slog.Info("Report generated",
				"path", outputPath,
				"learnings", len(result.Learnings),
				"sources", len(result.Sources),
			)
		},
	}

	rootCmd.Flags().StringVarP(&topic, "topic", "t", "", "The research topic")
	rootCmd.Flags().IntVarP(&breadth, "breadth", "b", 4, "Sub-queries per recursion level")
	rootCmd.Flags().IntVarP(&depth, "depth", "d", 2, "Recursion depth")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "output.md", "Report output path")

	if err := rootCmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
