package simulation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joripage/fixsim/config"
	"github.com/joripage/fixsim/pkg/analytics"
	"github.com/joripage/fixsim/pkg/capture"
	"github.com/joripage/fixsim/pkg/capture/model"
	riskrule "github.com/joripage/fixsim/pkg/capture/risk_rule"
	"github.com/joripage/fixsim/pkg/fixclient"
	"github.com/joripage/fixsim/pkg/fixserver"
	"github.com/joripage/fixsim/pkg/recordlog"
	"github.com/joripage/fixsim/pkg/sink"
	"github.com/joripage/fixsim/pkg/workload"
	"go.uber.org/zap"
)

// Session is the transport side of a run: a FIX initiator or the in-process
// loopback venue.
type Session interface {
	capture.Transport
	Start() error
	WaitLogon(ctx context.Context) error
	SessionName() string
	Stop()
}

const (
	stampLayout  = "20060102_150405"
	closeTimeout = 10 * time.Second
)

type Result struct {
	RunID       string
	Records     []model.EventRecord
	Stats       workload.Stats
	Report      *analytics.Report
	DataPath    string
	SummaryPath string
	ReportPath  string
	Elapsed     time.Duration
}

// Simulation owns one run: the capture engine, its session, optional live
// mirroring and the persistence of everything captured.
type Simulation struct {
	cfg     *config.AppConfig
	runID   string
	logger  *zap.Logger
	engine  *capture.Engine
	session Session
	fanout  *sink.Fanout
	drain   time.Duration
	now     func() time.Time
}

func New(ctx context.Context, cfg *config.AppConfig, runID string, logger *zap.Logger) (*Simulation, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rules, err := buildRules(cfg.Risk)
	if err != nil {
		return nil, err
	}
	engine := capture.NewEngine(capture.EngineConfig{Rules: rules}, nil, logger)

	var session Session
	if cfg.Loopback {
		session = fixserver.NewLoopback(fixserver.NewVenue(cfg.Venue.Venue), engine, logger)
	} else {
		session = fixclient.NewClient(cfg.Fix, engine, logger)
	}
	engine.SetTransport(session)

	s := &Simulation{
		cfg:     cfg,
		runID:   runID,
		logger:  logger,
		engine:  engine,
		session: session,
		drain:   cfg.Drain(),
		now:     time.Now,
	}

	sinks, err := buildSinks(ctx, cfg.Sinks)
	if err != nil {
		return nil, err
	}
	if len(sinks) > 0 {
		s.fanout = sink.NewFanout(runID, logger, sinks...)
		engine.Events().Subscribe(s.fanout.Observe)
	}
	return s, nil
}

func (s *Simulation) Engine() *capture.Engine {
	return s.engine
}

// Run drives the workload and always persists and reports what was
// captured, including after errors, cancellation and panics.
func (s *Simulation) Run(ctx context.Context) (res *Result, err error) {
	start := s.now()
	res = &Result{RunID: s.runID}

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("simulation panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", ErrPanic, r)
		}
		if ferr := s.finish(res, start); ferr != nil {
			err = errors.Join(err, ferr)
		}
	}()

	if err := s.session.Start(); err != nil {
		return res, err
	}
	if err := s.session.WaitLogon(ctx); err != nil {
		return res, fmt.Errorf("wait logon: %w", err)
	}

	driver, err := workload.NewDriver(s.cfg.Workload, s.engine, s.logger)
	if err != nil {
		return res, err
	}
	stats, err := driver.Run(ctx)
	res.Stats = stats
	if err != nil {
		return res, err
	}

	s.logger.Info("workload done, draining",
		zap.Int("orders", stats.OrdersSent),
		zap.Int("cancels", stats.CancelsSent),
		zap.Int("failures", stats.Failures()),
		zap.Duration("drain", s.drain))
	select {
	case <-time.After(s.drain):
	case <-ctx.Done():
		return res, ctx.Err()
	}
	return res, nil
}

func (s *Simulation) finish(res *Result, start time.Time) error {
	s.logger.Info("stopping session",
		zap.String("session", s.session.SessionName()),
		zap.Bool("connected", s.engine.Connected()),
		zap.Int("orders", s.engine.Orders().Len()))
	s.session.Stop()
	s.engine.Close()
	if s.fanout != nil {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		if err := s.fanout.Close(ctx); err != nil {
			s.logger.Warn("close sinks", zap.Error(err))
		}
		cancel()
		flushed, failed := s.fanout.Stats()
		s.logger.Info("mirroring done", zap.Int("flushed", flushed), zap.Int("failed", failed))
	}

	res.Records = s.engine.Events().Records()
	stamp := start.Format(stampLayout)
	out := s.cfg.Output
	var errs []error

	dataPath := filepath.Join(out.Dir, "data_"+stamp+".csv")
	if err := recordlog.WriteFile(dataPath, res.Records); err != nil {
		errs = append(errs, fmt.Errorf("write records: %w", err))
	} else {
		res.DataPath = dataPath
	}
	if out.SqlitePath != "" {
		if err := s.saveJournal(res.Records); err != nil {
			errs = append(errs, err)
		}
	}

	report, err := analytics.Run(context.Background(), res.Records, s.cfg.Analytics)
	switch {
	case errors.Is(err, analytics.ErrEmptyDataset):
		s.logger.Warn("no data")
	case err != nil:
		errs = append(errs, fmt.Errorf("analytics: %w", err))
	default:
		report.RunID = s.runID
		report.SessionID = s.session.SessionName()
		res.Report = report
		if err := s.writeReports(res, stamp); err != nil {
			errs = append(errs, err)
		}
	}

	res.Elapsed = s.now().Sub(start)
	s.logger.Info("Simulation Complete, Time Taken " + FormatElapsed(res.Elapsed))
	return errors.Join(errs...)
}

func (s *Simulation) saveJournal(records []model.EventRecord) error {
	path := s.cfg.Output.SqlitePath
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	j, err := recordlog.OpenJournal(path)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()
	if err := j.Save(context.Background(), s.runID, records); err != nil {
		return fmt.Errorf("save journal: %w", err)
	}
	return nil
}

func (s *Simulation) writeReports(res *Result, stamp string) error {
	text := res.Report.Text()
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		s.logger.Info(line)
	}

	summary := filepath.Join(s.cfg.Output.Dir, "summary_"+stamp+".log")
	if err := os.WriteFile(summary, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	res.SummaryPath = summary

	format := s.cfg.Output.ReportFormat
	if format == analytics.FormatText || format == "" {
		return nil
	}
	path := filepath.Join(s.cfg.Output.Dir, "report_"+stamp+"."+string(format))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer f.Close()
	if err := res.Report.Write(f, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	res.ReportPath = path
	return nil
}

// FormatElapsed renders d as mm:ss.
func FormatElapsed(d time.Duration) string {
	secs := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func buildRules(cfg config.RiskConfig) ([]riskrule.RiskRule, error) {
	var rules []riskrule.RiskRule
	if len(cfg.PriceBands) > 0 {
		rules = append(rules, riskrule.NewLimitPriceRule(cfg.PriceBands))
	}
	if cfg.TickSizeFile != "" {
		r, err := riskrule.NewTickSizeRuleFromFile(cfg.TickSizeFile)
		if err != nil {
			return nil, fmt.Errorf("load tick sizes: %w", err)
		}
		rules = append(rules, r)
	}
	return rules, nil
}

func buildSinks(ctx context.Context, cfg config.SinksConfig) ([]sink.Sink, error) {
	var sinks []sink.Sink
	fail := func(err error) ([]sink.Sink, error) {
		for _, s := range sinks {
			_ = s.Close(ctx)
		}
		return nil, err
	}

	if cfg.Kafka != nil {
		s, err := sink.NewKafkaSink(*cfg.Kafka, zap.L().Named("kafka"))
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Nats != nil {
		s, err := sink.NewNatsSink(*cfg.Nats)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	if cfg.Redis != nil {
		s, err := sink.NewRedisSink(ctx, *cfg.Redis)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, s)
	}
	return sinks, nil
}
