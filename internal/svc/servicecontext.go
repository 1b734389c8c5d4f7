package svc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx driver
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/stores/redis"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	"zerodte-api/internal/config"
	"zerodte-api/internal/model"
	analysispersist "zerodte-api/internal/persistence/analysis"
	"zerodte-api/pkg/analysis"
	llmpkg "zerodte-api/pkg/llm"
	marketpkg "zerodte-api/pkg/market"
	_ "zerodte-api/pkg/market/exchanges/tradier"
	"zerodte-api/pkg/narrative"
	"zerodte-api/pkg/prompt"
	publisherpkg "zerodte-api/pkg/publisher"
	"zerodte-api/pkg/report"
	"zerodte-api/pkg/snapshot"
)

type ServiceContext struct {
	Config config.Config

	MarketConfig    *marketpkg.Config
	Gateway         marketpkg.Gateway
	Builder         *snapshot.Builder
	LLMConfig       *llmpkg.Config
	LLMClient       llmpkg.LLMClient
	Prompt          *prompt.Template
	PromptDigest    string
	Generator       narrative.Generator
	PublisherConfig *publisherpkg.Config
	Publisher       *publisherpkg.Publisher
	Reports         *report.Writer
	Metrics         *analysis.Metrics
	Store           *analysis.Store
	Scheduler       *analysis.Scheduler

	// Optional archive, wired only when Postgres or Redis is configured.
	DBConn               sqlx.SqlConn
	AnalysisResultsModel model.AnalysisResultsModel
	Redis                *redis.Redis
	Archive              *analysispersist.Service
}

// MustNewServiceContext is NewServiceContext that exits on error.
func MustNewServiceContext(c config.Config) *ServiceContext {
	svc, err := NewServiceContext(context.Background(), c)
	logx.Must(err)
	return svc
}

// NewServiceContext builds every collaborator from c. The scheduler is
// created but not started.
func NewServiceContext(ctx context.Context, c config.Config) (*ServiceContext, error) {
	svc := &ServiceContext{
		Config:  c,
		Reports: report.NewWriter(c.ReportsDir),
		Metrics: analysis.DefaultMetrics(),
		Store:   analysis.NewStore(),
	}

	if err := svc.initMarket(); err != nil {
		return nil, err
	}
	if err := svc.initNarrative(); err != nil {
		return nil, err
	}
	if err := svc.initPublisher(ctx); err != nil {
		return nil, err
	}
	if err := svc.initArchive(); err != nil {
		return nil, err
	}

	sinks := []analysis.Sink{svc.Reports}
	if svc.Archive != nil {
		sinks = append(sinks, svc.Archive)
	}
	if svc.Publisher != nil && svc.PublisherConfig.AutoPublish {
		sinks = append(sinks, svc.Publisher)
	}
	svc.Scheduler = analysis.NewScheduler(svc.Builder, svc.Generator, svc.Store, c.SchedulerConfig(),
		analysis.WithSinks(sinks...),
		analysis.WithMetrics(svc.Metrics),
	)
	return svc, nil
}

func (s *ServiceContext) initMarket() error {
	marketCfg := s.Config.Market.Value
	if marketCfg == nil {
		return errors.New("svc: market config is required")
	}
	gateway, err := marketCfg.DefaultProvider()
	if err != nil {
		return fmt.Errorf("svc: build market gateway: %w", err)
	}
	s.MarketConfig = marketCfg
	s.Gateway = gateway
	s.Builder = snapshot.NewBuilder(gateway, s.Config.Symbol,
		snapshot.WithVolatilitySymbol(s.Config.VolatilitySymbol),
	)
	return nil
}

func (s *ServiceContext) initNarrative() error {
	tmpl, err := prompt.NewTemplate(s.Config.PromptPath(), nil)
	if err != nil {
		return fmt.Errorf("svc: load narrative prompt: %w", err)
	}
	s.Prompt = tmpl
	s.PromptDigest = tmpl.Digest()

	var opts []narrative.Option
	if llmCfg := s.Config.LLM.Value; llmCfg != nil {
		s.LLMConfig = llmCfg
		if strings.TrimSpace(llmCfg.APIKey) == "" {
			logx.Info("svc: llm api key missing, narrative generation disabled")
		} else {
			client, err := llmpkg.NewClient(llmCfg)
			if err != nil {
				return fmt.Errorf("svc: build llm client: %w", err)
			}
			s.LLMClient = client
			opts = append(opts, narrative.WithTimeout(llmCfg.Timeout))
		}
	}
	s.Generator = narrative.NewLLMGenerator(s.LLMClient, tmpl, opts...)
	return nil
}

func (s *ServiceContext) initPublisher(ctx context.Context) error {
	pubCfg := s.Config.Publisher.Value
	if pubCfg == nil || !pubCfg.Enabled {
		return nil
	}
	pub, err := publisherpkg.New(ctx, pubCfg)
	if err != nil {
		return fmt.Errorf("svc: build publisher: %w", err)
	}
	s.PublisherConfig = pubCfg
	s.Publisher = pub
	return nil
}

func (s *ServiceContext) initArchive() error {
	c := s.Config
	archiveCfg := analysispersist.Config{
		Interval: c.Scheduler.Interval,
		Symbol:   c.Symbol,
	}
	if c.Postgres.DSN != "" {
		conn := sqlx.NewSqlConn("pgx", c.Postgres.DSN)
		if db, err := conn.RawDB(); err == nil {
			db.SetMaxOpenConns(c.Postgres.MaxOpen)
			db.SetMaxIdleConns(c.Postgres.MaxIdle)
		}
		s.DBConn = conn
		s.AnalysisResultsModel = model.NewAnalysisResultsModel(conn)
		archiveCfg.ResultsModel = s.AnalysisResultsModel
	}
	if strings.TrimSpace(c.Redis.Host) != "" {
		rds, err := redis.NewRedis(c.Redis)
		if err != nil {
			return fmt.Errorf("svc: connect redis: %w", err)
		}
		s.Redis = rds
		archiveCfg.Cache = rds
	}
	s.Archive = analysispersist.NewService(archiveCfg)
	return nil
}

// Prime restores the last archived result into the store so the API does
// not serve the placeholder after a restart.
func (s *ServiceContext) Prime(ctx context.Context) {
	if s.Archive == nil {
		return
	}
	r, ok, err := s.Archive.LoadLatest(ctx)
	if err != nil {
		logx.WithContext(ctx).Errorf("svc: prime latest analysis: %v", err)
		return
	}
	if ok && s.Store.Prime(r) {
		logx.WithContext(ctx).Infof("svc: primed latest analysis run=%s", r.RunID)
	}
}

// Start primes the store and launches the scheduler loop unless disabled.
func (s *ServiceContext) Start(ctx context.Context) {
	s.Prime(ctx)
	if s.Config.Scheduler.Disabled {
		logx.Info("svc: scheduler disabled, manual triggers only")
		return
	}
	s.Scheduler.Start(ctx)
}

// Stop halts the scheduler and releases client resources.
func (s *ServiceContext) Stop() {
	s.Scheduler.Stop()
	if s.LLMClient != nil {
		if err := s.LLMClient.Close(); err != nil {
			logx.Errorf("svc: close llm client: %v", err)
		}
	}
}
