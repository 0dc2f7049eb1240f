// Package browse is an interactive, line-oriented train browser. Its filter and
// page live in a shareable location, so pasting the printed location into
// another session shows the same view.
package browse

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/railwatch/trainview/internal/assets"
	"github.com/railwatch/trainview/internal/favorites"
	"github.com/railwatch/trainview/internal/locsync"
	"github.com/railwatch/trainview/internal/model"
	"github.com/railwatch/trainview/internal/query"
)

// Location parameters the browser binds.
const (
	FilterParam = "filter"
	PageParam   = "page"
)

// ErrQuit is returned by Exec for the quit command.
var ErrQuit = errors.New("quit")

// Source is the snapshot the browser reads from.
type Source interface {
	URL() string
	SetURL(url string) error
	List(ctx context.Context, limit, offset int, f query.Filter) (query.Result, error)
	Train(ctx context.Context, id int64) (model.Train, bool, error)
	Trains(ctx context.Context, ids []int64) ([]model.Train, []int64, error)
}

// FavoritesStore persists favorites between sessions.
type FavoritesStore interface {
	Save(s *favorites.Set) error
}

// Options configures a Browser.
type Options struct {
	Source    Source
	Location  string
	PageSize  int
	Assets    assets.Resolver
	Favorites *favorites.Set
	Store     FavoritesStore
	Out       io.Writer
	Log       zerolog.Logger
}

// Browser holds one browse session.
type Browser struct {
	src      Source
	loc      *locsync.History
	filter   *locsync.Binding[query.Filter]
	page     *locsync.Binding[int]
	pageSize int
	assets   assets.Resolver
	favs     *favorites.Set
	store    FavoritesStore
	out      io.Writer
	log      zerolog.Logger
}

// New creates a Browser starting at location, e.g. "/trains?page=2".
func New(opts Options) (*Browser, error) {
	if opts.Location == "" {
		opts.Location = "/trains"
	}
	loc, err := locsync.NewHistory(opts.Location)
	if err != nil {
		return nil, fmt.Errorf("invalid location %q: %w", opts.Location, err)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 20
	}
	if opts.Favorites == nil {
		opts.Favorites = favorites.NewSet()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	return &Browser{
		src:      opts.Source,
		loc:      loc,
		filter:   locsync.Bind(loc, FilterParam, query.Filter{}),
		page:     locsync.Bind(loc, PageParam, 0),
		pageSize: opts.PageSize,
		assets:   opts.Assets,
		favs:     opts.Favorites,
		store:    opts.Store,
		out:      opts.Out,
		log:      opts.Log,
	}, nil
}

// Location is the shareable address of the current view.
func (b *Browser) Location() string {
	return b.loc.String()
}

// Filter is the current filter.
func (b *Browser) Filter() query.Filter {
	return b.filter.Cell().Get()
}

// Page is the current zero-based page.
func (b *Browser) Page() int {
	return b.page.Cell().Get()
}

// Close unbinds the location.
func (b *Browser) Close() {
	b.filter.Close()
	b.page.Close()
}

// Run reads commands from in until EOF or quit.
func (b *Browser) Run(ctx context.Context, in io.Reader) error {
	if err := b.Render(ctx); err != nil {
		return err
	}
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(b.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(b.out)
			return scanner.Err()
		}
		err := b.Exec(ctx, scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			color.New(color.FgRed).Fprintf(b.out, "error: %v\n", err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

// Exec runs one command line.
func (b *Browser) Exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return nil
	case "quit", "exit", "q":
		return ErrQuit
	case "help", "?":
		b.help()
		return nil
	case "next", "n":
		b.page.Cell().Set(b.Page() + 1)
	case "prev", "p":
		if b.Page() > 0 {
			b.page.Cell().Set(b.Page() - 1)
		}
	case "page":
		n, err := strconv.Atoi(arg)
		if err != nil || n < 1 {
			return fmt.Errorf("usage: page <n>, n >= 1")
		}
		b.page.Cell().Set(n - 1)
	case "where":
		key, frag, ok := strings.Cut(arg, " ")
		if !ok || strings.TrimSpace(frag) == "" {
			return fmt.Errorf("usage: where <key> <sql predicate>")
		}
		b.setFilter(b.Filter().With(key, strings.TrimSpace(frag)))
	case "unwhere":
		if arg == "" {
			b.setFilter(query.Filter{}.OrderBy(orderOf(b.Filter())))
		} else {
			b.setFilter(b.Filter().Without(arg))
		}
	case "order":
		b.setFilter(b.Filter().OrderBy(arg))
	case "go":
		if err := b.loc.Navigate(arg); err != nil {
			return fmt.Errorf("invalid location: %w", err)
		}
	case "snapshot":
		if arg == "" {
			fmt.Fprintln(b.out, b.src.URL())
			return nil
		}
		if err := b.src.SetURL(arg); err != nil {
			return err
		}
		b.page.Cell().Set(0)
	case "show":
		return b.show(ctx, arg)
	case "fav":
		return b.toggleFavorite(ctx, arg)
	case "favs":
		return b.listFavorites(ctx)
	case "loc":
		fmt.Fprintln(b.out, b.Location())
		return nil
	default:
		return fmt.Errorf("unknown command %q, try help", cmd)
	}
	return b.Render(ctx)
}

// a new filter always starts at the first page
func (b *Browser) setFilter(f query.Filter) {
	b.filter.Cell().Set(f)
	b.page.Cell().Set(0)
}

func orderOf(f query.Filter) string {
	if f.HasOrder() {
		return f.Order()
	}
	return ""
}

// Render prints the current page.
func (b *Browser) Render(ctx context.Context) error {
	f := b.Filter()
	page := b.Page()
	res, err := b.src.List(ctx, b.pageSize, page*b.pageSize, f)
	if err != nil {
		return err
	}

	pages := max(res.PageCount(b.pageSize), 1)
	heading.Fprintf(b.out, "Trains %d of %d (page %d/%d)\n", res.FilteredCount, res.TotalCount, page+1, pages)
	for _, key := range f.Keys() {
		frag, _ := f.Fragment(key)
		dim.Fprintf(b.out, "  where %s: %s\n", key, frag)
	}
	dim.Fprintf(b.out, "  order: %s\n", f.Order())

	WriteTrains(b.out, res.Trains, b.favs.Has)
	dim.Fprintf(b.out, "location: %s\n", b.Location())

	b.log.Debug().Str("location", b.Location()).Int("rows", len(res.Trains)).Msg("Rendered page")
	return nil
}

func (b *Browser) show(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("usage: show <id>")
	}
	t, ok, err := b.src.Train(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Fprintf(b.out, "no train with id %d\n", id)
		return nil
	}
	WriteTrain(b.out, t, b.assets.ForTrain(t), b.favs.Has(id))
	return nil
}

func (b *Browser) toggleFavorite(ctx context.Context, arg string) error {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return fmt.Errorf("usage: fav <id>")
	}
	if !b.favs.Has(id) {
		if _, ok, err := b.src.Train(ctx, id); err != nil {
			return err
		} else if !ok {
			return fmt.Errorf("no train with id %d", id)
		}
	}
	on := b.favs.Toggle(id)
	if b.store != nil {
		if err := b.store.Save(b.favs); err != nil {
			return err
		}
	}
	if on {
		fmt.Fprintf(b.out, "%s added train %d to favorites\n", star, id)
	} else {
		fmt.Fprintf(b.out, "removed train %d from favorites\n", id)
	}
	return nil
}

func (b *Browser) listFavorites(ctx context.Context) error {
	found, missing, err := b.src.Trains(ctx, b.favs.IDs())
	if err != nil {
		return err
	}
	heading.Fprintf(b.out, "Favorites (%d)\n", len(found))
	WriteTrains(b.out, found, nil)
	if len(missing) > 0 {
		dim.Fprintf(b.out, "not in this snapshot: %v\n", missing)
	}
	return nil
}

func (b *Browser) help() {
	fmt.Fprint(b.out, `commands:
  next | prev | page <n>       move between pages
  where <key> <predicate>      add or replace a filter predicate
  unwhere [key]                drop one predicate, or all
  order <clause>               set the order, empty for newest first
  go <location>                jump to a shared location
  snapshot [url]               show or switch the snapshot
  show <id>                    train details and asset URLs
  fav <id> | favs              toggle a favorite, list favorites
  loc                          print the current location
  quit
`)
}
