package bootstrap

import (
	"context"
	"fmt"

	"callbridge/internal/callcontext"
	"callbridge/internal/config"
	kafkaClient "callbridge/internal/clients/kafka"
	"callbridge/internal/clients/mail"
	"callbridge/internal/clients/openai"
	redisClient "callbridge/internal/clients/redis"
	twilioClient "callbridge/internal/clients/twilio"
	"callbridge/internal/observability"
	"callbridge/internal/ratelimit"
	"callbridge/internal/transcript"
	voiceCallHandler "callbridge/internal/voicecall/handler"
	voiceCallProcessor "callbridge/internal/voicecall/processor"
	"callbridge/internal/voicecall/session"
)

// Dependencies holds all initialized application dependencies
type Dependencies struct {
	Logger *observability.Logger

	// Handlers
	VoiceCallHandler voiceCallHandler.Handler

	// Live call sessions, drained on shutdown
	VoiceCallProcessor *voiceCallProcessor.VoiceCallProcessor

	// Per client limit on outbound calls
	StartCallLimiter *ratelimit.Service

	// Clients (for cleanup)
	RedisClient   *redisClient.Client
	KafkaProducer *kafkaClient.Producer
}

// Initialize sets up all application dependencies
func Initialize(ctx context.Context, cfg *config.Config, logger *observability.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Logger: logger,
	}

	var err error
	deps.RedisClient, err = redisClient.NewClient(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	contexts, err := newContextStore(cfg, deps.RedisClient)
	if err != nil {
		deps.Cleanup()
		return nil, err
	}

	// Transcripts follow the context store to Redis when it is available
	var transcripts voiceCallProcessor.TranscriptStore = transcript.NewMemoryStore()
	if deps.RedisClient.IsEnabled() {
		transcripts = transcript.NewRedisStore(deps.RedisClient, cfg.ContextStore.TTL)
	}

	// Initialize Kafka producer when brokers are configured
	var events voiceCallProcessor.EventPublisher
	var publishers transcript.Publishers
	if brokers := cfg.Kafka.KafkaBrokers(); len(brokers) > 0 {
		deps.KafkaProducer = kafkaClient.NewProducer(kafkaClient.ProducerConfig{
			Brokers: brokers,
			Topic:   cfg.Kafka.Topic,
		}, logger)
		events = deps.KafkaProducer
		publishers = append(publishers, transcript.NewKafkaPublisher(deps.KafkaProducer))
	}

	// Finished transcripts are mailed when a recipient is configured
	if cfg.Services.ResendAPIKey != "" && cfg.Services.TranscriptEmailTo != "" {
		mailClient, err := mail.NewClient(cfg.Services.ResendAPIKey, cfg.Services.DefaultEmailSender, cfg.Services.TranscriptEmailTo, logger)
		if err != nil {
			deps.Cleanup()
			return nil, fmt.Errorf("failed to create resend client: %w", err)
		}
		publishers = append(publishers, transcript.NewMailPublisher(mailClient))
	}
	var publisher transcript.Publisher
	if len(publishers) > 0 {
		publisher = publishers
	}

	calls := twilioClient.NewClient(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, logger)

	realtime, err := openai.NewRealtimeDialer(cfg.OpenAI.RealtimeURL, cfg.OpenAI.APIKey, logger)
	if err != nil {
		deps.Cleanup()
		return nil, fmt.Errorf("failed to create realtime dialer: %w", err)
	}

	resolver := callcontext.NewResolver(contexts, callcontext.Policy{
		MaxAttempts: cfg.Session.ContextRetryAttempts,
		Interval:    cfg.Session.ContextRetryInterval,
	}, logger)

	// Initialize voice call processor and handler
	deps.VoiceCallProcessor = voiceCallProcessor.New(voiceCallProcessor.Config{
		BaseURL:    cfg.Services.BaseURL,
		FromNumber: cfg.Twilio.PhoneNumber,
		ContextTTL: cfg.ContextStore.TTL,
		Session: session.Config{
			Voice:              cfg.OpenAI.Voice,
			Temperature:        cfg.OpenAI.Temperature,
			TranscriptionModel: cfg.OpenAI.TranscriptionModel,
			GoodbyeDelay:       cfg.Session.GoodbyeDelay,
			ClosingPhrases:     cfg.Session.ClosingPhrases,
			CleanupTimeout:     cfg.Session.CleanupTimeout,
		},
	}, voiceCallProcessor.Dependencies{
		Calls:       calls,
		Contexts:    contexts,
		Resolver:    resolver,
		Dialer:      voiceCallProcessor.NewRealtimeDialer(realtime),
		Transcripts: transcripts,
		Publisher:   publisher,
		Events:      events,
	}, logger)

	var validator voiceCallHandler.SignatureValidator
	if cfg.Twilio.ValidateSignature {
		validator = calls
	}
	deps.VoiceCallHandler = voiceCallHandler.New(deps.VoiceCallProcessor, validator, cfg.Services.BaseURL, logger)
	deps.StartCallLimiter = ratelimit.NewService(deps.RedisClient, cfg.Server.StartCallRateLimit, logger)

	logger.Info(observability.WithFields(ctx,
		observability.Field{Key: "context_store", Value: cfg.ContextStore.Backend},
		observability.Field{Key: "redis", Value: deps.RedisClient.IsEnabled()},
		observability.Field{Key: "transcript_sinks", Value: len(publishers)},
		observability.Field{Key: "start_call_rate_limit", Value: cfg.Server.StartCallRateLimit},
	), "dependencies initialized")

	return deps, nil
}

func newContextStore(cfg *config.Config, client *redisClient.Client) (callcontext.Store, error) {
	switch cfg.ContextStore.Backend {
	case config.ContextStoreRedis:
		if !client.IsEnabled() {
			return nil, fmt.Errorf("redis context store requires a redis connection")
		}
		return callcontext.NewRedisStore(client), nil
	case config.ContextStoreSealed:
		store, err := callcontext.NewSealedStore(cfg.ContextStore.SealKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create sealed context store: %w", err)
		}
		return store, nil
	default:
		return callcontext.NewMemoryStore(), nil
	}
}

// Cleanup closes all resources that need cleanup
func (d *Dependencies) Cleanup() {
	if d.KafkaProducer != nil {
		if err := d.KafkaProducer.Close(); err != nil {
			d.Logger.Error(context.Background(), "failed to close kafka producer", err)
		}
	}
	if d.RedisClient != nil {
		if err := d.RedisClient.Close(); err != nil {
			d.Logger.Error(context.Background(), "failed to close redis client", err)
		}
	}
}
