package main

import (
	"context"
	"flag"
	"fmt"
	"image/jpeg"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/reelbox/reelbox/internal/config"
	"github.com/reelbox/reelbox/internal/domain"
	"github.com/reelbox/reelbox/internal/library"
	"github.com/reelbox/reelbox/internal/log"
	"github.com/reelbox/reelbox/internal/media"
	"github.com/reelbox/reelbox/internal/playback"
	"github.com/reelbox/reelbox/internal/playlist"
	"github.com/reelbox/reelbox/internal/search"
	"github.com/reelbox/reelbox/internal/store"
	"github.com/reelbox/reelbox/internal/thumbnail"
	"github.com/reelbox/reelbox/internal/watcher"
)

// Version is set at build time via -ldflags
var Version = "dev"

const usage = `usage: reelbox [flags] <command> [args]

commands:
  scan                          rescan the library root
  ls [sort-key]                 list the catalog (name|duration|added|size|watch_count)
  search <query>                search the catalog by name
  thumb <video> <out.jpg>       render a thumbnail to a file
  rm <video>                    delete a video (file + catalog, cascades)
  like <video> | unlike <video> manage the liked set
  liked                         list the liked set
  playlist ls                   list playlists
  playlist create <name>        create a playlist
  playlist rename <id> <name>   rename a playlist
  playlist del <id>             delete a playlist
  playlist add <id> <video>...  add videos to a playlist
  playlist rm <id> <video>      remove a video from a playlist
  play [-shuffle] [-loop] [-playlist id] [-liked] <video>
  watch                         rescan whenever the library root changes
`

// app bundles the composition root: every service is an explicitly
// constructed instance, wired here and nowhere else.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *store.Store
	library   *library.Service
	playlists *playlist.Service
	search    *search.Service
	thumbs    *thumbnail.Cache
}

func main() {
	var showVersion bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	if showVersion {
		fmt.Printf("reelbox %s\n", Version)
		return
	}

	if err := run(flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := log.SetupLogger(&cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting reelbox", "version", Version)

	if !cfg.IsConfigured() {
		return fmt.Errorf("no library root configured; set library.root in the config file or REELBOX_LIBRARY_ROOT")
	}

	st := store.Open(config.DefaultDataPath(), logger)
	defer st.Close()

	renderer := media.NewFFRenderer(cfg.Thumbnails.Width, cfg.Thumbnails.Height)
	a := &app{
		cfg:       cfg,
		logger:    logger,
		store:     st,
		library:   library.NewService(st, media.NewFFProber(), cfg.Library, logger),
		playlists: playlist.NewService(st, logger),
		search:    search.NewService(logger),
		thumbs:    thumbnail.NewCache(renderer, cfg.Thumbnails.Capacity, logger),
	}

	if len(args) == 0 {
		flag.Usage()
		return nil
	}

	switch args[0] {
	case "scan":
		return a.cmdScan()
	case "ls":
		return a.cmdList(args[1:])
	case "search":
		return a.cmdSearch(args[1:])
	case "thumb":
		return a.cmdThumb(args[1:])
	case "rm":
		return a.cmdRemove(args[1:])
	case "like":
		return a.cmdLike(args[1:], true)
	case "unlike":
		return a.cmdLike(args[1:], false)
	case "liked":
		return a.cmdLiked()
	case "playlist":
		return a.cmdPlaylist(args[1:])
	case "play":
		return a.cmdPlay(args[1:])
	case "watch":
		return a.cmdWatch()
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func (a *app) cmdScan() error {
	videos, err := a.library.Scan(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("indexed %d videos under %s\n", len(videos), a.cfg.Library.Root)
	return nil
}

func (a *app) cmdList(args []string) error {
	key := library.SortByName
	if len(args) > 0 {
		key = library.SortKey(args[0])
	}
	videos := library.Sort(a.library.Videos(), key)
	for _, v := range videos {
		liked := " "
		if a.playlists.IsLiked(v.ID) {
			liked = "*"
		}
		fmt.Printf("%s %-40s %8s  %9s  plays=%d\n", liked, v.Name, v.FormattedDuration(), v.FormattedSize(), v.WatchCount)
	}
	return nil
}

func (a *app) cmdSearch(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: reelbox search <query>")
	}
	for _, r := range a.search.Search(args[0], a.library.Videos()) {
		fmt.Printf("%-40s %s\n", r.Video.Name, r.Video.Location)
	}
	return nil
}

func (a *app) cmdThumb(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: reelbox thumb <video> <out.jpg>")
	}
	v, err := a.resolveVideo(args[0])
	if err != nil {
		return err
	}
	img, ok := a.thumbs.Get(context.Background(), v.Location)
	if !ok {
		return fmt.Errorf("no thumbnail could be generated for %s", v.Location)
	}
	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	defer out.Close()
	return jpeg.Encode(out, img, nil)
}

func (a *app) cmdRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: reelbox rm <video>")
	}
	v, err := a.resolveVideo(args[0])
	if err != nil {
		return err
	}
	if err := a.library.Delete(context.Background(), v.ID); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", v.Name)
	return nil
}

func (a *app) cmdLike(args []string, like bool) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: reelbox like|unlike <video>")
	}
	v, err := a.resolveVideo(args[0])
	if err != nil {
		return err
	}
	if like {
		return a.playlists.Like(v.ID)
	}
	return a.playlists.Unlike(v.ID)
}

func (a *app) cmdLiked() error {
	for _, id := range a.playlists.Liked() {
		if v, ok := a.library.Video(id); ok {
			fmt.Printf("%-40s %s\n", v.Name, v.Location)
		}
	}
	return nil
}

func (a *app) cmdPlaylist(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: reelbox playlist ls|create|rename|del|add|rm ...")
	}
	switch args[0] {
	case "ls":
		for _, p := range a.playlists.Playlists() {
			fmt.Printf("%s  %-30s %d items\n", p.ID, p.Name, p.ItemCount())
		}
		return nil
	case "create":
		if len(args) != 2 {
			return fmt.Errorf("usage: reelbox playlist create <name>")
		}
		p, err := a.playlists.Create(args[1])
		if err != nil {
			return err
		}
		fmt.Printf("created playlist %s (%s)\n", p.Name, p.ID)
		return nil
	case "rename":
		if len(args) != 3 {
			return fmt.Errorf("usage: reelbox playlist rename <id> <name>")
		}
		_, err := a.playlists.Rename(args[1], args[2])
		return err
	case "del":
		if len(args) != 2 {
			return fmt.Errorf("usage: reelbox playlist del <id>")
		}
		a.playlists.Delete(args[1])
		return nil
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: reelbox playlist add <id> <video>...")
		}
		ids := make([]string, 0, len(args)-2)
		for _, arg := range args[2:] {
			v, err := a.resolveVideo(arg)
			if err != nil {
				return err
			}
			ids = append(ids, v.ID)
		}
		p, err := a.playlists.AddVideos(args[1], ids)
		if err != nil {
			return err
		}
		fmt.Printf("%s now has %d items\n", p.Name, p.ItemCount())
		return nil
	case "rm":
		if len(args) != 3 {
			return fmt.Errorf("usage: reelbox playlist rm <id> <video>")
		}
		v, err := a.resolveVideo(args[2])
		if err != nil {
			return err
		}
		_, err = a.playlists.RemoveVideo(args[1], v.ID)
		return err
	default:
		return fmt.Errorf("unknown playlist command %q", args[0])
	}
}

func (a *app) cmdPlay(args []string) error {
	fs := flag.NewFlagSet("play", flag.ExitOnError)
	shuffle := fs.Bool("shuffle", false, "shuffle the queue (chosen video still plays first)")
	loop := fs.Bool("loop", false, "loop the queue")
	playlistID := fs.String("playlist", "", "queue a playlist instead of the whole library")
	liked := fs.Bool("liked", false, "queue the liked set")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: reelbox play [-shuffle] [-loop] [-playlist id] [-liked] <video>")
	}

	v, err := a.resolveVideo(fs.Arg(0))
	if err != nil {
		return err
	}

	source, playCtx, err := a.queueSource(*playlistID, *liked)
	if err != nil {
		return err
	}

	engine := playback.NewProcessEngine(a.cfg.Player.Command, a.cfg.Player.Args, a.logger)
	queue := playback.NewQueue(engine, a.library, a.store, consoleObserver{}, a.cfg.Playback.WatchThreshold, a.logger)
	engine.SetHandler(queue)

	err = queue.Play(v.ID, source, playback.Options{
		Shuffle: *shuffle,
		Loop:    *loop,
		Context: playCtx,
	})
	if err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-sigCh:
			queue.Stop()
			return nil
		case <-ticker.C:
			switch queue.State() {
			case playback.StateEnded, playback.StateIdle:
				return nil
			}
		}
	}
}

func (a *app) cmdWatch() error {
	w, err := watcher.New(a.cfg.Library.Root, a.cfg.Library.Recursive, a.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	if _, err := a.library.Scan(context.Background()); err != nil {
		return err
	}
	fmt.Printf("watching %s\n", a.cfg.Library.Root)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-w.Changes():
			videos, err := a.library.Scan(context.Background())
			if err != nil {
				a.logger.Error("rescan failed", "error", err)
				continue
			}
			fmt.Printf("rescanned: %d videos\n", len(videos))
		case <-sigCh:
			return nil
		}
	}
}

// queueSource resolves the play command's origin into a source list and
// its context record.
func (a *app) queueSource(playlistID string, liked bool) ([]domain.Video, domain.PlayContext, error) {
	switch {
	case playlistID != "":
		p, ok := a.playlists.Playlist(playlistID)
		if !ok {
			return nil, domain.PlayContext{}, domain.ErrPlaylistNotFound
		}
		videos := make([]domain.Video, 0, len(p.VideoIDs))
		for _, id := range p.VideoIDs {
			if v, ok := a.library.Video(id); ok {
				videos = append(videos, v)
			}
		}
		return videos, domain.PlayContext{Kind: domain.ContextPlaylist, PlaylistID: playlistID}, nil
	case liked:
		ids := a.playlists.Liked()
		videos := make([]domain.Video, 0, len(ids))
		for _, id := range ids {
			if v, ok := a.library.Video(id); ok {
				videos = append(videos, v)
			}
		}
		return library.Sort(videos, library.SortByName), domain.PlayContext{Kind: domain.ContextLiked}, nil
	default:
		return library.Sort(a.library.Videos(), library.SortByName), domain.PlayContext{Kind: domain.ContextLibrary}, nil
	}
}

// resolveVideo accepts a catalog ID or any path to an indexed file.
func (a *app) resolveVideo(arg string) (domain.Video, error) {
	if v, ok := a.library.Video(arg); ok {
		return v, nil
	}
	if abs, err := filepath.Abs(arg); err == nil {
		if v, ok := a.library.Video(filepath.Clean(abs)); ok {
			return v, nil
		}
	}
	return domain.Video{}, fmt.Errorf("%w: %s (try 'reelbox scan' first)", domain.ErrVideoNotFound, arg)
}

// consoleObserver prints queue events for the interactive play command.
type consoleObserver struct{}

func (consoleObserver) StateChanged(state playback.State) {
	if state == playback.StateEnded {
		fmt.Println("queue ended")
	}
}

func (consoleObserver) TrackChanged(v domain.Video) {
	fmt.Printf("now playing: %s (%s)\n", v.Name, v.FormattedDuration())
}

func (consoleObserver) QueueFailed(err error) {
	fmt.Fprintf(os.Stderr, "playback failed: %v\n", err)
}
