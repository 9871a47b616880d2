package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsrekognition "github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/kozaktomas/event-faces/internal/config"
	"github.com/kozaktomas/event-faces/internal/constants"
	"github.com/kozaktomas/event-faces/internal/embedding"
	"github.com/kozaktomas/event-faces/internal/events"
	"github.com/kozaktomas/event-faces/internal/facematch"
	"github.com/kozaktomas/event-faces/internal/logging"
	"github.com/kozaktomas/event-faces/internal/rekognition"
	"github.com/kozaktomas/event-faces/internal/storage"
)

// app holds the collaborators shared by all commands.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	store    storage.Bucket
	engine   *facematch.Engine
	registry *events.Registry // nil when EVENTS_TABLE is unset

	aws *aws.Config
}

// newApp loads configuration and wires storage, the oracle and the event registry.
func newApp(ctx context.Context) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}

	if a.store, err = a.newStore(ctx); err != nil {
		return nil, err
	}
	oracle, err := a.newOracle(ctx)
	if err != nil {
		return nil, err
	}
	a.engine = facematch.NewEngine(oracle, facematch.WithLogger(logger))

	if cfg.Events.Table != "" {
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		a.registry = events.NewRegistry(dynamodb.NewFromConfig(awsCfg), cfg.Events.Table)
	}
	return a, nil
}

// awsConfig loads the shared AWS configuration once.
func (a *app) awsConfig(ctx context.Context) (aws.Config, error) {
	if a.aws != nil {
		return *a.aws, nil
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(a.cfg.AWS.Region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	a.aws = &awsCfg
	return awsCfg, nil
}

func (a *app) newStore(ctx context.Context) (storage.Bucket, error) {
	sc := a.cfg.Storage
	switch sc.Backend {
	case constants.StorageS3:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return storage.NewS3Store(s3.NewFromConfig(awsCfg), sc.Bucket, sc.PublicBaseURL), nil
	case constants.StorageMinio:
		client, err := storage.NewMinioClient(sc.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewMinioStore(client, sc.Bucket, sc.PublicBaseURL), nil
	case constants.StorageLocal:
		return storage.NewLocalStore(sc.LocalDir, sc.PublicBaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", sc.Backend)
	}
}

func (a *app) newOracle(ctx context.Context) (facematch.Oracle, error) {
	switch a.cfg.Oracle.Provider {
	case constants.OracleRekognition:
		awsCfg, err := a.awsConfig(ctx)
		if err != nil {
			return nil, err
		}
		return rekognition.New(awsrekognition.NewFromConfig(awsCfg), a.cfg.Storage.Bucket,
			rekognition.WithRateLimit(a.cfg.Oracle.RateLimit)), nil
	case constants.OracleInsightFace:
		return embedding.NewOracle(embedding.NewClient(a.cfg.Embedding.URL), a.store,
			embedding.WithRateLimit(a.cfg.Oracle.RateLimit),
			embedding.WithLogger(a.logger)), nil
	default:
		return nil, fmt.Errorf("unknown oracle: %s", a.cfg.Oracle.Provider)
	}
}

// resolveEvent checks the scope against the event registry, if configured.
func (a *app) resolveEvent(ctx context.Context, scope facematch.Scope) (*events.Event, error) {
	if a.registry == nil {
		return nil, nil
	}
	return a.registry.Resolve(ctx, scope)
}

func (a *app) close() {
	_ = a.logger.Sync()
}

// signalContext is cancelled on SIGINT or SIGTERM, so runs stop at their next
// batch or image boundary instead of the process being killed mid-run.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
