package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/calebcgates/ImproveLLMStructure/pkg/adapter"
	"github.com/calebcgates/ImproveLLMStructure/pkg/config"
	"github.com/calebcgates/ImproveLLMStructure/pkg/format"
	"github.com/calebcgates/ImproveLLMStructure/pkg/ingest"
	"github.com/calebcgates/ImproveLLMStructure/pkg/learn"
	"github.com/calebcgates/ImproveLLMStructure/pkg/pipeline"
	"github.com/calebcgates/ImproveLLMStructure/pkg/serve"
)

var (
	configFile   string
	providerFlag string
	modelFlag    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "improvellm",
		Short: "Finalize raw LLM output into validated structured formats",
		Long: `ImproveLLMStructure takes raw model responses and turns them into the
	format the caller actually asked for: cleaned, extracted, rendered,
	validated, and self-corrected through bounded re-prompts when the
	model got the structure wrong.`,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "model provider (anthropic, openai, google, upstream, mock)")
	rootCmd.PersistentFlags().StringVar(&modelFlag, "model", "", "model override")

	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(formatsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func askCmd() *cobra.Command {
	var formatFlag string
	var intentFlag string
	var dataFile string
	var dataContentType string
	var retries int

	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Send a prompt and print the finalized output",
		Long: `Sends the prompt to the configured model, then normalizes the response
	into the requested output format. Invalid output triggers the
	correction loop: the model is re-prompted with the specific
	validation failure until the output validates or the retry budget
	runs out.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt := args[0]

			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if retries >= 0 {
				cfg.RetryBudget = retries
			}

			p, _, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			req := ingest.Request{
				Prompt: prompt,
				Format: formatFlag,
			}
			req.RawIntent = intentFlag
			if dataFile != "" {
				data, err := os.ReadFile(dataFile)
				if err != nil {
					return fmt.Errorf("failed to read data file: %w", err)
				}
				req.Body = string(data)
				req.ContentType = dataContentType
			}

			result, err := p.Run(context.Background(), req)
			if err != nil {
				return fmt.Errorf("model call failed: %w", err)
			}

			if !result.Report.Valid {
				fmt.Fprintf(os.Stderr, "warning: output failed validation (%s): %s\n",
					result.Report.Kind, result.Report.Message)
			}
			if result.Corrected {
				fmt.Fprintf(os.Stderr, "output corrected after %d attempt(s)\n", len(result.Attempts))
			}
			if result.TransportErr != nil {
				fmt.Fprintf(os.Stderr, "warning: correction aborted: %v\n", result.TransportErr)
			}

			fmt.Println(result.Output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "output format (json, html, plaintext, or a code language)")
	cmd.Flags().StringVar(&intentFlag, "intent", "", "code intent (code_only or code_with_explanation)")
	cmd.Flags().StringVar(&dataFile, "data", "", "file with input data to include in the prompt")
	cmd.Flags().StringVar(&dataContentType, "data-type", "", "content type of the data file")
	cmd.Flags().IntVar(&retries, "retries", -1, "correction retry budget override")

	return cmd
}

func serveCmd() *cobra.Command {
	var listenFlag string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Long: `Starts the HTTP server. POST /ask processes prompts through the full
	finalization pipeline; GET /formats lists the known output formats.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if listenFlag != "" {
				cfg.ListenAddr = listenFlag
			}

			p, formats, err := buildPipeline(cfg)
			if err != nil {
				return err
			}

			server := serve.NewServer(p, formats)
			log.Printf("listening on %s", cfg.ListenAddr)
			return http.ListenAndServe(cfg.ListenAddr, server.Handler())
		},
	}

	cmd.Flags().StringVar(&listenFlag, "listen", "", "listen address (default from config)")
	return cmd
}

func formatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List known output formats",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			formats, err := loadFormats(cfg)
			if err != nil {
				return err
			}

			names := formats.Names()
			sort.Strings(names)

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tFAMILY\tCOMMENT")
			for _, name := range names {
				spec, _ := formats.Lookup(name)
				comment := spec.CommentPrefix
				if spec.CommentSuffix != "" {
					comment += " " + spec.CommentSuffix
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, spec.Family, comment)
			}
			return w.Flush()
		},
	}
}

func loadConfig() (*config.Config, error) {
	if configFile != "" {
		return config.LoadFile(configFile)
	}
	return config.Load()
}

func loadFormats(cfg *config.Config) (*format.Registry, error) {
	if cfg.FormatsFile == "" {
		return format.Default(), nil
	}
	formats, err := format.Load(cfg.FormatsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load formats file: %w", err)
	}
	return formats, nil
}

func buildPipeline(cfg *config.Config) (*pipeline.Pipeline, *format.Registry, error) {
	provider := cfg.Provider
	if providerFlag != "" {
		provider = providerFlag
	}
	if !cfg.HasProvider(provider) {
		return nil, nil, fmt.Errorf("provider %q is not configured (missing API key or endpoint)", strings.ToLower(provider))
	}

	client, err := adapter.New(adapter.Options{
		Provider: provider,
		Model:    firstNonEmpty(modelFlag, cfg.Model),
		APIKey:   cfg.APIKey(provider),
		Endpoint: cfg.UpstreamEndpoint,
		Timeout:  cfg.Timeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create adapter: %w", err)
	}

	formats, err := loadFormats(cfg)
	if err != nil {
		return nil, nil, err
	}

	var recorder learn.Recorder = learn.NopRecorder{}
	if cfg.LearnDir != "" {
		fileRecorder, err := learn.NewFileRecorder(cfg.LearnDir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create interaction recorder: %w", err)
		}
		recorder = fileRecorder
	}

	// A configured budget of zero means correction off, which the
	// pipeline spells as a negative budget.
	retryBudget := cfg.RetryBudget
	if retryBudget <= 0 {
		retryBudget = -1
	}

	p := pipeline.New(pipeline.Options{
		Client:        client,
		Formats:       formats,
		Recorder:      recorder,
		RetryBudget:   retryBudget,
		DefaultFormat: cfg.DefaultFormat,
	})
	return p, formats, nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
