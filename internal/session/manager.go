package session

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/mohammad-safakhou/dealwatch/config"
	"github.com/mohammad-safakhou/dealwatch/internal/catalog"
	"github.com/mohammad-safakhou/dealwatch/internal/overlay"
	"github.com/mohammad-safakhou/dealwatch/internal/predict"
	"github.com/mohammad-safakhou/dealwatch/internal/settings"
	"github.com/mohammad-safakhou/dealwatch/internal/storefront"
	"github.com/mohammad-safakhou/dealwatch/internal/telemetry"
)

// State is the session state machine position.
type State int

const (
	StateIdle State = iota
	StateDiscovering
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDiscovering:
		return "discovering"
	case StateConnected:
		return "connected"
	default:
		return "idle"
	}
}

// Fetcher runs the price fetch pipeline. *catalog.Client satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, appID string, q catalog.Query) catalog.Result
}

// Options are the manager's collaborators. Zero fields get production
// defaults except Fetcher and Settings, which are required.
type Options struct {
	Fetcher     Fetcher
	Settings    settings.Store
	Dial        Dialer
	NewRenderer func(Channel) overlay.Renderer
	HTTPClient  *http.Client
	Now         func() time.Time
}

// Manager owns the control-channel connection to the tracked store page:
// discovery, connection, event subscription, retry, teardown. Exactly one
// session is live per manager; all transitions serialize on one mutex.
type Manager struct {
	cfg         config.SessionConfig
	fetcher     Fetcher
	settings    settings.Store
	dial        Dialer
	newRenderer func(Channel) overlay.Renderer
	httpc       *http.Client
	now         func() time.Time
	logger      *log.Logger

	mu          sync.Mutex
	mounted     bool
	state       State
	gen         uint64
	channel     Channel
	renderer    overlay.Renderer
	retriesLeft int
	retryTimer  *time.Timer
	settleTimer *time.Timer
	resolved    ResolvedApp
}

func NewManager(cfg config.SessionConfig, opts Options) *Manager {
	cfg = cfg.Normalize()
	m := &Manager{
		cfg:         cfg,
		fetcher:     opts.Fetcher,
		settings:    opts.Settings,
		dial:        opts.Dial,
		newRenderer: opts.NewRenderer,
		httpc:       opts.HTTPClient,
		now:         opts.Now,
		logger:      telemetry.Logger("SESSION"),
	}
	if m.dial == nil {
		m.dial = DialChannel(cfg.ChannelDeadline)
	}
	if m.newRenderer == nil {
		m.newRenderer = func(ch Channel) overlay.Renderer { return overlay.NewChannelRenderer(ch) }
	}
	if m.httpc == nil {
		m.httpc = &http.Client{Timeout: 10 * time.Second}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Resolved returns the shared resolved-app handle for collaborators.
func (m *Manager) Resolved() *ResolvedApp { return &m.resolved }

// State returns the current state machine position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Mounted reports whether the session is active.
func (m *Manager) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Start mounts the session and begins discovery. No-op if already mounted.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.mounted {
		m.mu.Unlock()
		return
	}
	m.mounted = true
	m.gen++
	gen := m.gen
	m.retriesLeft = m.cfg.RetryLimit
	m.setStateLocked(StateDiscovering)
	m.mu.Unlock()

	telemetry.Sessions.WithLabelValues("started").Inc()
	go m.discover(gen)
}

// Stop unmounts the session: handlers removed, channel closed, timers
// canceled, shared state cleared. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	wasMounted := m.mounted
	m.mounted = false
	m.gen++
	if m.retryTimer != nil {
		m.retryTimer.Stop()
		m.retryTimer = nil
	}
	if m.settleTimer != nil {
		m.settleTimer.Stop()
		m.settleTimer = nil
	}
	ch := m.channel
	m.channel = nil
	m.renderer = nil
	m.setStateLocked(StateIdle)
	m.mu.Unlock()

	if ch != nil {
		_ = ch.Close()
	}
	m.resolved.clear()
	if wasMounted {
		telemetry.Sessions.WithLabelValues("stopped").Inc()
	}
}

// alive reports whether the session that spawned a continuation is still the
// mounted one. Stopped-while-in-flight work discards its results.
func (m *Manager) alive(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted && m.gen == gen
}

func (m *Manager) setStateLocked(s State) {
	m.state = s
	telemetry.SessionState.Set(float64(s))
}

func (m *Manager) discover(gen uint64) {
	if !m.alive(gen) {
		m.resolved.clear()
		return
	}
	tab, err := discoverStoreTab(context.Background(), m.httpc, m.cfg.DiscoveryURL, m.cfg.StorePrefix)
	if err != nil {
		m.retryOrGiveUp(gen, err)
		return
	}
	m.connect(gen, tab)
}

func (m *Manager) retryOrGiveUp(gen uint64, cause error) {
	m.mu.Lock()
	if !m.mounted || m.gen != gen {
		m.mu.Unlock()
		m.resolved.clear()
		return
	}
	if m.retriesLeft > 0 {
		m.retriesLeft--
		telemetry.DiscoveryRetries.Inc()
		m.logger.Printf("discovery failed (%v), %d retries left", cause, m.retriesLeft)
		m.retryTimer = time.AfterFunc(m.cfg.RetryInterval, func() { m.discover(gen) })
		m.mu.Unlock()
		return
	}
	// give up silently; the feature just does not activate
	m.logger.Printf("discovery failed (%v), giving up", cause)
	m.retryTimer = nil
	m.setStateLocked(StateIdle)
	m.mu.Unlock()
	m.resolved.clear()
}

func (m *Manager) connect(gen uint64, tab Tab) {
	// the tab's current URL goes through the pipeline before the channel
	// opens; the page may already be sitting on an app
	m.dispatch(gen, tab.URL)

	handlers := ChannelHandlers{
		OnNavigate: func(url string, topLevel bool) {
			if !topLevel {
				return
			}
			m.dispatch(gen, url)
		},
		OnClose: func() {
			m.mu.Lock()
			still := m.mounted && m.gen == gen
			if still {
				m.channel = nil
				m.renderer = nil
				m.setStateLocked(StateIdle)
			}
			m.mu.Unlock()
			// no auto-reconnect here: the navigation watcher drives
			// re-entry
			if still {
				m.resolved.clear()
			}
		},
	}

	ch, err := m.dial(context.Background(), tab.WebSocketDebuggerURL, handlers)
	if err != nil {
		m.retryOrGiveUp(gen, err)
		return
	}

	m.mu.Lock()
	if !m.mounted || m.gen != gen {
		m.mu.Unlock()
		_ = ch.Close()
		m.resolved.clear()
		return
	}
	if m.channel != nil {
		// never two open channels at once
		_ = m.channel.Close()
	}
	m.channel = ch
	m.renderer = m.newRenderer(ch)
	m.setStateLocked(StateConnected)
	m.mu.Unlock()

	if err := ch.EnablePageEvents(context.Background()); err != nil {
		m.logger.Printf("enabling page events: %v", err)
	}
}

// dispatch is the resolve+dispatch pipeline for one URL.
func (m *Manager) dispatch(gen uint64, url string) {
	if !m.alive(gen) {
		m.resolved.clear()
		return
	}
	if !storefront.IsStoreURL(url) {
		m.resolved.clear()
		return
	}
	id, ok := storefront.Resolve(url)
	m.resolved.set(id)
	if !ok {
		return
	}
	if !m.settings.Enabled() {
		return
	}

	m.mu.Lock()
	if !m.mounted || m.gen != gen {
		m.mu.Unlock()
		return
	}
	if m.settleTimer != nil {
		m.settleTimer.Stop()
	}
	// let the store page finish its own render first
	m.settleTimer = time.AfterFunc(m.cfg.DispatchSettle, func() { m.refresh(gen, id) })
	m.mu.Unlock()
}

func (m *Manager) refresh(gen uint64, appID string) {
	if !m.alive(gen) {
		m.resolved.clear()
		return
	}
	r := m.currentRenderer()
	if r == nil {
		return
	}
	ctx := context.Background()
	if err := r.Placeholder(ctx, appID); err != nil {
		m.logger.Printf("placeholder render: %v", err)
	}

	res := m.fetcher.Fetch(ctx, appID, catalog.Query{Country: m.settings.Country(), Shops: m.settings.Shops()})
	if !m.alive(gen) {
		m.resolved.clear()
		return
	}

	now := m.now()
	var pred *predict.Prediction
	if res.Data != nil && len(res.Data.History) > 0 {
		current := res.Data.History[len(res.Data.History)-1].Amount
		pred = predict.Predict(res.Data.History, current, now)
	}
	cmd := overlay.Build(appID, res, pred, m.settings, now)

	if r = m.currentRenderer(); r == nil {
		return
	}
	if err := r.Render(ctx, cmd); err != nil {
		m.logger.Printf("render app %s: %v", appID, err)
	}
}

func (m *Manager) currentRenderer() overlay.Renderer {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.renderer
}
