// Package app wires the daemon together: it follows the system player,
// fetches lyrics for the current track, and runs one display session per
// track that turns clock samples into broadcast frames.
package app

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"lyricd/internal/clock"
	"lyricd/internal/config"
	"lyricd/internal/display"
	"lyricd/internal/ipc"
	"lyricd/internal/player"
	"lyricd/internal/web"
	"lyricd/pkg/catalog"
	"lyricd/pkg/lrclib"
	"lyricd/pkg/lyricscache"
	"lyricd/pkg/source"
)

// Backend is the media player the daemon follows. It provides track
// identity and the read-only playback clock.
type Backend interface {
	clock.Source
	CurrentTrack() (string, error)
	TrackTitle() (string, error)
}

// broadcaster is any surface frames are pushed to; the IPC and web
// servers both qualify.
type broadcaster interface {
	Broadcast(frame []byte)
}

type App struct {
	cfg       *config.Config
	backend   Backend
	ipcServer *ipc.Server
	webServer *web.Server
	sinks     []broadcaster
	catalog   *catalog.Client // nil without a configured base URL
	sources   *source.Manager
	cache     *lyricscache.Cache

	mutex        sync.Mutex
	currentTrack string

	sessionMutex  sync.Mutex
	sessionCancel context.CancelFunc
	session       *session
}

func New(cfg *config.Config) *App {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cache, err := lyricscache.New(lyricscache.Options{
		RedisAddr:     cfg.Redis.Addr,
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		TTL:           cfg.Redis.TTL,
		Dir:           cfg.App.CacheDir,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create lyrics cache")
	}

	var catalogClient *catalog.Client
	var sources []source.Source
	if cfg.Catalog.BaseURL != "" {
		catalogClient = catalog.NewClient(cfg.Catalog.BaseURL)
		sources = append(sources, source.NewCatalogSource(catalogClient))
	}
	if !cfg.LRCLib.Disabled {
		client := lrclib.NewClient()
		if cfg.LRCLib.BaseURL != "" {
			client = lrclib.NewClientWithBaseURL(cfg.LRCLib.BaseURL)
		}
		sources = append(sources, source.NewLRCLibSource(client))
	}

	a := &App{
		cfg:       cfg,
		backend:   player.New(),
		ipcServer: ipc.NewServer(cfg.App.SocketPath),
		webServer: web.NewServer(cfg.App.HTTPAddr),
		catalog:   catalogClient,
		sources:   source.NewManager(sources),
		cache:     cache,
	}
	a.sinks = []broadcaster{a.ipcServer, a.webServer}
	return a
}

func (a *App) Run() {
	log.Info().Str("cache_dir", a.cfg.App.CacheDir).Msg("Lyrics cache directory")

	if err := a.ipcServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start IPC server")
	}
	defer a.ipcServer.Close()

	if err := a.webServer.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start web server")
	}
	defer a.webServer.Close()
	defer a.cache.Close()

	ticker := time.NewTicker(a.cfg.App.CheckInterval)
	defer ticker.Stop()

	log.Info().Msg("Starting player check loop...")
	for {
		a.checkTrack()
		<-ticker.C
	}
}

func (a *App) broadcast(frame Frame) {
	data := frame.encode()
	for _, sink := range a.sinks {
		sink.Broadcast(data)
	}
}

// checkTrack detects track changes and rotates display sessions.
func (a *App) checkTrack() {
	trackID, err := a.backend.CurrentTrack()
	if err != nil || trackID == "" {
		a.mutex.Lock()
		changed := a.currentTrack != ""
		a.currentTrack = ""
		a.mutex.Unlock()
		if changed {
			a.stopSession()
			a.broadcast(Frame{State: stateIdle})
		}
		return
	}

	a.mutex.Lock()
	if trackID == a.currentTrack {
		a.mutex.Unlock()
		return
	}
	a.currentTrack = trackID
	a.mutex.Unlock()

	title, _ := a.backend.TrackTitle()
	log.Info().Msg("-----------------------------------------------------")
	log.Info().Str("track_id", trackID).Str("title", title).Msg("New track detected")

	a.startSession(trackID, title)
}

func (a *App) stopSession() {
	a.sessionMutex.Lock()
	defer a.sessionMutex.Unlock()
	if a.sessionCancel != nil {
		a.sessionCancel()
		a.sessionCancel = nil
		a.session = nil
	}
}

// startSession replaces the running session with a fresh one for trackID.
// The session starts with an empty lyric track (the placeholder frame) and
// fills in once the fetch resolves, if it is still the current track.
func (a *App) startSession(trackID, title string) {
	a.sessionMutex.Lock()
	defer a.sessionMutex.Unlock()

	if a.sessionCancel != nil {
		log.Info().Msg("Stopping previous display session")
		a.sessionCancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	a.sessionCancel = cancel

	s := &session{
		trackID: trackID,
		title:   title,
		window:  display.NewWindow(display.Options{MinDwell: a.cfg.Display.MinDwell, ExitLead: a.cfg.Display.ExitLead}),
		app:     a,
	}
	a.session = s

	a.broadcast(Frame{Track: trackID, Title: title, State: stateLoading})

	poller := clock.NewPoller(a.backend, a.cfg.App.TickInterval, s.tick, s.setDuration)
	go poller.Run(ctx)
	go a.fetchLyrics(ctx, s)
}

// fetchLyrics resolves lyric text for the session's track: cache first,
// then the source chain. The result is dropped if the session was
// cancelled meanwhile; stale lyrics must never reach a newer track.
func (a *App) fetchLyrics(ctx context.Context, s *session) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	text, ok := a.cache.Get(fetchCtx, s.trackID)
	if !ok {
		track := a.describeTrack(fetchCtx, s)
		fetched, err := a.sources.FetchLyrics(fetchCtx, track)
		if err != nil {
			// Fetch failure renders exactly like "no lyrics found".
			log.Error().Err(err).Str("track_id", s.trackID).Msg("Failed to get lyrics")
			fetched = ""
		}
		text = fetched
		a.cache.Put(fetchCtx, s.trackID, text)
	}

	// Only session cancellation makes the result stale; a timed-out fetch
	// for the still-current track may legitimately come up empty.
	if ctx.Err() != nil {
		log.Info().Str("track_id", s.trackID).Msg("Discarding lyrics for a stale track")
		return
	}
	s.load(text)
}

// describeTrack builds the metadata used for source lookups. The catalog
// is authoritative; without one the player's "artist - title" line is
// split as a best effort for the lrclib search.
func (a *App) describeTrack(ctx context.Context, s *session) catalog.Track {
	if a.catalog != nil {
		track, err := a.catalog.GetTrack(ctx, s.trackID)
		if err == nil {
			return track
		}
		log.Warn().Err(err).Str("track_id", s.trackID).Msg("Catalog track lookup failed")
	}

	track := catalog.Track{ID: s.trackID, Title: s.title}
	if d, ok := a.backend.Duration(); ok {
		track.Duration = d
	}
	if artist, rest, found := strings.Cut(s.title, " - "); found {
		track.Artist = strings.TrimSpace(artist)
		track.Title = strings.TrimSpace(rest)
	}
	return track
}

// session is one track's display state. The window is touched from the
// poller goroutine and the fetch goroutine, hence the mutex.
type session struct {
	trackID string
	title   string
	app     *App

	mu      sync.Mutex
	window  *display.Window
	lastSel display.Selection
	sent    bool
}

func (s *session) load(text string) {
	s.mu.Lock()
	s.window.Load(text)
	s.sent = false // force a broadcast on the next tick
	s.mu.Unlock()
}

func (s *session) setDuration(d float64) {
	s.mu.Lock()
	s.window.SetDuration(d)
	s.mu.Unlock()
}

func (s *session) tick(t float64) {
	s.mu.Lock()
	sel := s.window.Tick(t)
	changed := !s.sent || !sel.Equal(s.lastSel)
	s.lastSel = sel
	s.sent = true
	s.mu.Unlock()

	if changed {
		s.app.broadcast(frameFromSelection(s.trackID, s.title, sel))
	}
}
