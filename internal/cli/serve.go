package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ppiankov/livecheck/internal/aggregate"
	"github.com/ppiankov/livecheck/internal/server"
	"github.com/ppiankov/livecheck/internal/session"
	"github.com/ppiankov/livecheck/internal/transcribe"
	"github.com/ppiankov/livecheck/internal/worker"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket fact checking server",
	Long: `Serve accepts websocket connections on /ws/{clientID} (or /ws for a
generated id). Binary frames are audio segments; text frames are JSON
messages of type "mediaChunk" or "transcript".

Example:
  livecheck serve
  livecheck serve --addr :9000
  LIVECHECK_TRANSCRIBE_PROVIDER=text livecheck serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	cfg := a.cfg
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	baseURL := ""
	if cfg.LLM.Provider == "openai" {
		baseURL = cfg.LLM.BaseURL
	}
	transcriber, err := transcribe.New(cfg.Transcribe, openAIKey(cfg), baseURL, a.logger)
	if err != nil {
		return fmt.Errorf("transcriber: %w", err)
	}

	manager := session.NewManager(session.Deps{
		Config:      cfg.Server,
		Transcriber: transcriber,
		Aggregator:  aggregate.New(aggregate.NewLLMEvaluator(a.provider, a.logger), a.logger),
		Pipeline:    a.pipeline,
		Limiter:     worker.NewLimiter(cfg.Server.SegmentRPS, cfg.Server.SegmentBurst),
	}, a.logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checkProvider(ctx, a.provider, a.logger)

	a.logger.Info("livecheck starting",
		zap.String("version", version),
		zap.String("llm", a.provider.Name()),
		zap.String("transcriber", transcriber.Name()))

	return server.New(cfg.Server, manager, a.logger).ListenAndServe(ctx)
}
