package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/flemzord/tdsta/internal/core"
	"github.com/flemzord/tdsta/internal/cron"
	"github.com/flemzord/tdsta/internal/ingest/archive"
	"github.com/flemzord/tdsta/internal/knowledge"
	"github.com/flemzord/tdsta/internal/security"
	"gopkg.in/yaml.v3"
)

// Service names published by the module.
const (
	IngestorService  = "ingest.ingestor"
	RefresherService = "ingest.refresher"
	ArchiveService   = "ingest.archive"
)

// ObserverService is the service name looked up for an ingestion Observer.
const ObserverService = "telemetry.metrics"

// Provider names accepted in configuration.
const (
	ProviderStatic    = "static"
	ProviderHTTP      = "http"
	ProviderDiscourse = "discourse"
)

// Startup window defaults.
const (
	DefaultStartDate = "2025-01-01"
	DefaultEndDate   = "2025-04-14"
	DefaultCategory  = "tds"

	// EndToday as end_date resolves to the current UTC day.
	EndToday = "today"
)

func init() {
	core.RegisterModule(&Module{})
}

// Compile-time interface guards.
var (
	_ core.Configurable = (*Module)(nil)
	_ core.Provisioner  = (*Module)(nil)
	_ core.Validator    = (*Module)(nil)
	_ core.Starter      = (*Module)(nil)
	_ core.Stopper      = (*Module)(nil)
	_ core.Reloader     = (*Module)(nil)
	_ cron.Refresher    = (*Module)(nil)
)

// ModuleConfig configures the ingest.corpus module.
type ModuleConfig struct {
	SourceTimeout time.Duration  `yaml:"source_timeout"`
	ForumRoot     knowledge.Link `yaml:"forum_root"`
	SiteRoot      knowledge.Link `yaml:"site_root"`
	Startup       *bool          `yaml:"startup"`
	Forum         ForumConfig    `yaml:"forum"`
	Site          SiteConfig     `yaml:"site"`
	Refresh       RefreshConfig  `yaml:"refresh"`
	Archive       archive.Config `yaml:"archive"`

	// URLFilter, when any domain is listed, limits network providers to
	// allowed public hosts.
	URLFilter security.URLFilterConfig `yaml:"url_filter"`
}

// ForumConfig selects and configures the forum provider.
type ForumConfig struct {
	Provider  string `yaml:"provider"`
	BaseURL   string `yaml:"base_url"`
	Category  string `yaml:"category"`
	StartDate string `yaml:"start_date"`
	EndDate   string `yaml:"end_date"`
	APIKey    string `yaml:"api_key"`
	APIUser   string `yaml:"api_user"`
	MaxPages  int    `yaml:"max_pages"`
}

// SiteConfig selects and configures the site provider.
type SiteConfig struct {
	Provider string   `yaml:"provider"`
	Pages    []string `yaml:"pages"`
}

// RefreshConfig holds optional cron expressions for periodic passes.
type RefreshConfig struct {
	Site  string `yaml:"site"`
	Forum string `yaml:"forum"`
}

func (c *ModuleConfig) defaults() {
	if c.SourceTimeout <= 0 {
		c.SourceTimeout = DefaultSourceTimeout
	}
	if c.ForumRoot.URL == "" {
		c.ForumRoot = DefaultForumRoot
	}
	if c.SiteRoot.URL == "" {
		c.SiteRoot = DefaultSiteRoot
	}
	if c.Startup == nil {
		t := true
		c.Startup = &t
	}
	if c.Forum.Provider == "" {
		c.Forum.Provider = ProviderStatic
	}
	if c.Forum.BaseURL == "" {
		c.Forum.BaseURL = strings.TrimRight(DefaultForumRoot.URL, "/")
	}
	if c.Forum.Category == "" {
		c.Forum.Category = DefaultCategory
	}
	if c.Forum.StartDate == "" {
		c.Forum.StartDate = DefaultStartDate
	}
	if c.Forum.EndDate == "" {
		c.Forum.EndDate = DefaultEndDate
	}
	if c.Site.Provider == "" {
		c.Site.Provider = ProviderStatic
	}
	c.Archive.Defaults()
}

func (c *ModuleConfig) validate() error {
	var errs []error
	switch c.Forum.Provider {
	case ProviderStatic, ProviderDiscourse:
	default:
		errs = append(errs, fmt.Errorf("ingest: unknown forum provider %q", c.Forum.Provider))
	}
	switch c.Site.Provider {
	case ProviderStatic:
	case ProviderHTTP:
		if len(c.Site.Pages) == 0 {
			errs = append(errs, errors.New("ingest: site provider http requires pages"))
		}
	default:
		errs = append(errs, fmt.Errorf("ingest: unknown site provider %q", c.Site.Provider))
	}
	if _, err := ParseDate(c.Forum.StartDate); err != nil {
		errs = append(errs, fmt.Errorf("forum.start_date: %w", err))
	}
	if c.Forum.EndDate != EndToday {
		if _, err := ParseDate(c.Forum.EndDate); err != nil {
			errs = append(errs, fmt.Errorf("forum.end_date: %w", err))
		}
	}
	for _, sched := range [][2]string{{"refresh.site", c.Refresh.Site}, {"refresh.forum", c.Refresh.Forum}} {
		if sched[1] == "" {
			continue
		}
		if err := cron.ParseSchedule(sched[1]); err != nil {
			errs = append(errs, fmt.Errorf("ingest: %s: %w", sched[0], err))
		}
	}
	if f := security.NewURLFilter(c.URLFilter); f.IsConfigured() && c.Forum.Provider == ProviderDiscourse {
		if err := f.Check(c.Forum.BaseURL); err != nil {
			errs = append(errs, fmt.Errorf("ingest: forum.base_url: %w", err))
		}
	}
	if err := c.Archive.Validate(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// window resolves the configured forum window's end date.
func (c *ModuleConfig) window(now time.Time) (start, end string) {
	end = c.Forum.EndDate
	if end == EndToday {
		end = now.UTC().Format(DateLayout)
	}
	return c.Forum.StartDate, end
}

func (c *ModuleConfig) providers(client *http.Client) (SiteProvider, ForumProvider) {
	var site SiteProvider = StaticSiteProvider{}
	if c.Site.Provider == ProviderHTTP {
		site = NewHTTPSiteProvider(c.Site.Pages, client)
	}

	var forum ForumProvider = StaticForumProvider{}
	if c.Forum.Provider == ProviderDiscourse {
		d := NewDiscourseProvider(c.Forum.BaseURL, client)
		d.APIKey, d.APIUser = c.Forum.APIKey, c.Forum.APIUser
		if c.Forum.MaxPages > 0 {
			d.MaxPages = c.Forum.MaxPages
		}
		forum = d
	}
	return site, forum
}

// Module owns the corpus, its ingestor, the optional archive and the
// refresh scheduler.
type Module struct {
	config   ModuleConfig
	current  atomic.Pointer[ModuleConfig]
	logger   *slog.Logger
	client   *http.Client
	ingestor *Ingestor
	archive  *archive.Archive
	sched    *cron.Scheduler
}

// ModuleInfo implements core.Module.
func (m *Module) ModuleInfo() core.ModuleInfo {
	return core.ModuleInfo{
		ID:  "ingest.corpus",
		New: func() core.Module { return &Module{} },
	}
}

// Configure implements core.Configurable.
func (m *Module) Configure(node *yaml.Node) error {
	if err := node.Decode(&m.config); err != nil {
		return fmt.Errorf("ingest: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner. The archive is closed again when
// a later step fails.
func (m *Module) Provision(ctx *core.AppContext) (err error) {
	defer func() {
		if err != nil {
			m.closeArchive()
		}
	}()

	m.config.defaults()
	if err := m.config.validate(); err != nil {
		return err
	}
	cfg := m.config
	m.current.Store(&cfg)
	m.logger = ctx.Logger
	m.client = &http.Client{Timeout: cfg.SourceTimeout}
	if f := security.NewURLFilter(cfg.URLFilter); f.IsConfigured() {
		m.client.Transport = f.Transport(nil)
	}

	site, forum := cfg.providers(m.client)
	m.ingestor = New(Config{
		Site:          site,
		Forum:         forum,
		Roots:         SourceRoots{Forum: cfg.ForumRoot, Site: cfg.SiteRoot},
		SourceTimeout: cfg.SourceTimeout,
		Logger:        ctx.Logger,
	})
	if obs, ok := core.Lookup[Observer](ctx, ObserverService); ok {
		m.ingestor.SetObserver(obs)
	}

	if cfg.Archive.Enabled {
		acfg := cfg.Archive
		if acfg.Path == "" {
			acfg.Path = archive.DefaultPath(ctx.DataDir)
		}
		a, err := archive.Open(context.TODO(), acfg)
		if err != nil {
			return err
		}
		m.archive = a
		m.ingestor.SetRecorder(ArchiveRecorder{Archive: a})
		ctx.RegisterService(ArchiveService, a)
	}

	m.sched = cron.NewScheduler(ctx.Logger)
	if cfg.Refresh.Site != "" {
		if err := m.sched.RegisterJob(&cron.SiteRefreshJob{Refresher: m, ScheduleExpr: cfg.Refresh.Site, Logger: ctx.Logger}); err != nil {
			return err
		}
	}
	if cfg.Refresh.Forum != "" {
		if err := m.sched.RegisterJob(&cron.ForumRefreshJob{Refresher: m, ScheduleExpr: cfg.Refresh.Forum, Logger: ctx.Logger}); err != nil {
			return err
		}
	}

	ctx.RegisterService(IngestorService, m.ingestor)
	ctx.RegisterService(RefresherService, m)

	m.logger.Info("ingest module provisioned",
		"site_provider", cfg.Site.Provider,
		"forum_provider", cfg.Forum.Provider,
		"archive", cfg.Archive.Enabled,
		"refresh_jobs", m.sched.Len(),
	)
	return nil
}

// Validate implements core.Validator.
func (m *Module) Validate() error {
	if m.ingestor == nil {
		return errors.New("ingest: module not provisioned")
	}
	if m.archive != nil {
		if err := m.archive.Ping(context.TODO()); err != nil {
			m.closeArchive()
			return err
		}
	}
	return nil
}

func (m *Module) closeArchive() {
	if m.archive == nil {
		return
	}
	if err := m.archive.Close(); err != nil && m.logger != nil {
		m.logger.Warn("ingest: close archive", "error", err)
	}
	m.archive = nil
}

// Start implements core.Starter. The startup passes run before the
// scheduler so the corpus is populated once Start returns.
func (m *Module) Start() error {
	if *m.current.Load().Startup {
		ctx := context.Background()
		m.RefreshSite(ctx)
		if _, err := m.RefreshForum(ctx); err != nil {
			return err
		}
	}
	if m.sched.Len() > 0 {
		return m.sched.Start()
	}
	return nil
}

// Stop implements core.Stopper.
func (m *Module) Stop(ctx context.Context) error {
	var errs []error
	if m.sched != nil {
		errs = append(errs, m.sched.Stop(ctx))
	}
	if m.archive != nil {
		errs = append(errs, m.archive.Close())
	}
	return errors.Join(errs...)
}

// Reload implements core.Reloader. Providers, forum window and category
// take effect on the next pass; refresh schedules need a restart.
func (m *Module) Reload(ctx *core.AppContext) error {
	var cfg ModuleConfig
	if node, ok := ctx.ModuleConfig(m.ModuleInfo().ID); ok {
		if err := node.Decode(&cfg); err != nil {
			return fmt.Errorf("ingest: decode config: %w", err)
		}
	}
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return err
	}

	prev := m.current.Load()
	if cfg.Refresh != prev.Refresh {
		ctx.Logger.Warn("ingest: refresh schedule changes require a restart")
	}
	if !slices.Equal(cfg.URLFilter.AllowDomains, prev.URLFilter.AllowDomains) ||
		!slices.Equal(cfg.URLFilter.DenyDomains, prev.URLFilter.DenyDomains) {
		ctx.Logger.Warn("ingest: url_filter changes require a restart")
	}
	site, forum := cfg.providers(m.client)
	m.ingestor.SetProviders(site, forum)
	m.current.Store(&cfg)
	ctx.Logger.Info("ingest module reloaded",
		"site_provider", cfg.Site.Provider,
		"forum_provider", cfg.Forum.Provider,
	)
	return nil
}

// RefreshSite implements cron.Refresher.
func (m *Module) RefreshSite(ctx context.Context) int {
	return len(m.ingestor.IngestSiteContent(ctx))
}

// RefreshForum implements cron.Refresher using the configured window and
// category.
func (m *Module) RefreshForum(ctx context.Context) (int, error) {
	cfg := m.current.Load()
	start, end := cfg.window(time.Now())
	items, err := m.ingestor.IngestForumPosts(ctx, start, end, cfg.Forum.Category)
	return len(items), err
}

// Ingestor returns the module's ingestor.
func (m *Module) Ingestor() *Ingestor { return m.ingestor }

// Scheduler returns the refresh scheduler.
func (m *Module) Scheduler() *cron.Scheduler { return m.sched }

// ArchiveRecorder adapts an archive to the Recorder interface.
type ArchiveRecorder struct {
	Archive *archive.Archive
}

// RecordPass implements Recorder.
func (r ArchiveRecorder) RecordPass(ctx context.Context, p Pass) error {
	ap := archive.Pass{
		ID:         p.ID,
		Source:     p.Source,
		Category:   p.Category,
		StartedAt:  p.StartedAt,
		FinishedAt: p.FinishedAt,
		Items:      make([]archive.Item, len(p.Items)),
	}
	if p.Window != nil {
		ap.Window = p.Window.String()
	}
	if p.Err != nil {
		ap.Error = p.Err.Error()
	}
	for i, it := range p.Items {
		ap.Items[i] = archive.Item{
			ID:          it.ID,
			Title:       it.Title,
			Body:        it.Body,
			URL:         it.URL,
			Category:    it.Category,
			Author:      it.Author,
			PublishedAt: it.Timestamp,
			Replies:     it.Replies,
			Likes:       it.Likes,
		}
	}
	return r.Archive.Record(ctx, ap)
}
