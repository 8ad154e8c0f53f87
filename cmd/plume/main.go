package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/plume-chat/plume/internal/profile"
	"github.com/plume-chat/plume/internal/version"
	"github.com/plume-chat/plume/plugin/voice"
	"github.com/plume-chat/plume/server/ai"
	apiv1 "github.com/plume-chat/plume/server/router/api/v1"
	"github.com/plume-chat/plume/server/service/chat"
	"github.com/plume-chat/plume/store"
	"github.com/plume-chat/plume/store/db"
)

const greetingBanner = `
plume %s - a chat backend that learns from its users
`

var rootCmd = &cobra.Command{
	Use:   "plume",
	Short: "An AI chat server with conversation memory and proactive recommendations",
	RunE: func(_ *cobra.Command, _ []string) error {
		instanceProfile := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version.GetCurrentVersion(viper.GetString("mode")),
		}
		instanceProfile.FromEnv()
		if err := instanceProfile.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		return serve(instanceProfile)
	},
}

func serve(instanceProfile *profile.Profile) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	dbDriver, err := db.NewDBDriver(instanceProfile)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}

	storeInstance := store.New(dbDriver, instanceProfile)
	defer storeInstance.Close()
	if err := storeInstance.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	provider, err := ai.NewProvider(ai.NewConfigFromProfile(instanceProfile))
	if err != nil {
		return err
	}
	responder := ai.NewResponder(provider)

	transcriber, synthesizer, err := buildVoiceProviders(instanceProfile)
	if err != nil {
		return err
	}

	analyzer := chat.NewAnalyzer(nil)
	builder := chat.NewContextBuilder(storeInstance, instanceProfile.ContextMaxHistory, instanceProfile.ContextMaxTokens)
	proactive := chat.NewProactiveEngine(storeInstance)
	engine := chat.NewEngine(storeInstance, analyzer, builder, proactive, responder)

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomw.Recover())
	echoServer.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v echomw.RequestLoggerValues) error {
			slog.Info("http request", slog.String("uri", v.URI), slog.Int("status", v.Status))
			return nil
		},
	}))

	apiService := apiv1.NewAPIV1Service(instanceProfile.Secret, instanceProfile, storeInstance, engine, proactive, transcriber, synthesizer)
	apiService.Register(echoServer)

	address := fmt.Sprintf("%s:%d", instanceProfile.Addr, instanceProfile.Port)
	go func() {
		if err := echoServer.Start(address); err != nil && err != http.ErrServerClosed {
			slog.Error("server start failed", slog.Any("err", err))
			cancel()
		}
	}()

	fmt.Printf(greetingBanner, instanceProfile.Version)
	slog.Info("server started",
		slog.String("address", address),
		slog.String("mode", instanceProfile.Mode),
		slog.String("driver", instanceProfile.Driver),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutdown signal received")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := echoServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", slog.Any("err", err))
	}
	return nil
}

// buildVoiceProviders resolves the configured speech providers. Unknown
// provider names fail startup; leaving a provider unset disables the
// matching endpoint.
func buildVoiceProviders(p *profile.Profile) (voice.Transcriber, voice.Synthesizer, error) {
	var transcriber voice.Transcriber
	var synthesizer voice.Synthesizer

	if p.STTProvider != "" {
		provider, err := voice.ParseSTTProvider(p.STTProvider)
		if err != nil {
			return nil, nil, err
		}
		switch provider {
		case voice.STTProviderWhisper:
			if p.LLMAPIKey == "" {
				slog.Warn("speech-to-text disabled, no API key configured")
				break
			}
			transcriber, err = voice.NewWhisperSTT(p.LLMAPIKey, p.LLMBaseURL, p.WhisperModel)
			if err != nil {
				return nil, nil, err
			}
		}
	}

	if p.TTSProvider != "" {
		provider, err := voice.ParseTTSProvider(p.TTSProvider)
		if err != nil {
			return nil, nil, err
		}
		switch provider {
		case voice.TTSProviderElevenLabs:
			if p.ElevenLabsAPIKey == "" {
				slog.Warn("text-to-speech disabled, no ElevenLabs API key configured")
				break
			}
			synthesizer, err = voice.NewElevenLabsTTS(p.ElevenLabsAPIKey, "")
			if err != nil {
				return nil, nil, err
			}
		}
	}

	return transcriber, synthesizer, nil
}

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("driver", "sqlite")
	viper.SetDefault("addr", "")
	viper.SetDefault("port", 8080)
	viper.SetDefault("data", "")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of the server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of the server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of the server")
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver, can be "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database connection string")

	for _, flag := range []string{"mode", "addr", "port", "data", "driver", "dsn"} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
	viper.SetEnvPrefix("plume")
	viper.AutomaticEnv()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("failed to run server", slog.Any("err", err))
		os.Exit(1)
	}
}
