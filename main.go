//
// articlefeed
// ===========
// A live article feed: articles and authors are loaded into in-memory stores,
// joined, and served over HTTP and websocket. Every change to either store
// produces a new joined list.
//
// Generate the route docs with `go run . -routes`.
//
// Boot the server:
// ----------------
// $ go run . -config config.yaml
//
// Client requests:
// ----------------
// $ curl http://localhost:3333/articles
// [{"id":0,"title":"Lorem","text":"ipsum dolor ...","authorName":"John Doe","isBookmarked":false,"author":{...}}, ...]
//
// $ curl 'http://localhost:3333/articles?filter=Bookmarked'
// [{"id":2,...},{"id":4,...}]
//
// $ curl -X PUT -d '{"bookmarked":true}' http://localhost:3333/articles/0/bookmark
// {"id":0,...,"isBookmarked":true}
//
// $ curl -X DELETE http://localhost:3333/articles/3
// {"id":3,...}
//
// $ curl -X POST http://localhost:3333/articles/refresh
//
// $ websocat ws://localhost:3333/articles/stream
// {"type":"snapshot","items":[...]}
//
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/docgen"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SergeyParamoshkin/articlefeed/internal/app"
	"github.com/SergeyParamoshkin/articlefeed/internal/article"
	"github.com/SergeyParamoshkin/articlefeed/internal/config"
	"github.com/SergeyParamoshkin/articlefeed/internal/datasource"
	"github.com/SergeyParamoshkin/articlefeed/internal/stream"
	"github.com/SergeyParamoshkin/articlefeed/internal/telemetry"
)

const (
	ServiceName = "articlefeed"

	shutdownTimeout = 5 * time.Second
)

type CtxKey int8

const (
	CtxKeyLogger CtxKey = iota
)

var statusKey = attribute.Key("status")

type App struct {
	sugarLogger *zap.SugaredLogger

	clientCompletedCount metric.Int64Counter
}

func NewApp(logger *zap.SugaredLogger, meter metric.Meter) *App {
	return &App{
		sugarLogger: logger,
		clientCompletedCount: metric.Must(meter).NewInt64Counter(
			"http/client/completed_count",
			metric.WithDescription("Count of completed requests, by HTTP method and response status"),
		),
	}
}

func main() {
	var (
		routes     = flag.Bool("routes", false, "Generate router documentation")
		configPath = flag.String("config", "", "path to a YAML config file")
		seed       = flag.Bool("seed", false, "create and seed the configured SQLite database, then exit")
	)

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	sugar, err := telemetry.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		log.Fatalf("create logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	switch {
	case *seed && cfg.Source.SQLitePath == "":
		err = errors.New("seed: source.sqlite_path is not set")
	case *seed:
		err = datasource.SeedFile(ctx, cfg.Source.SQLitePath)
	default:
		err = run(ctx, cfg, sugar, *routes)
	}

	stop()

	if err != nil {
		sugar.Errorw("exit", "error", err)
		_ = sugar.Sync()
		os.Exit(1)
	}
	_ = sugar.Sync()
}

func run(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger, routes bool) error {
	exporter, err := telemetry.NewPrometheus()
	if err != nil {
		return err
	}
	meter := global.Meter(ServiceName)

	sugar.Infow("starting", "source", cfg.Source.Kind, "addr", cfg.Server.Addr, "diag_addr", cfg.Server.DiagAddr)

	source, closeSource, err := openSource(ctx, cfg.Source)
	if err != nil {
		return err
	}
	defer closeSource()

	container := app.NewContainer(source,
		app.WithLogger(sugar),
		app.WithMeter(meter),
		app.WithRetry(app.ExponentialRetry(cfg.Retry.MaxRetries, cfg.Retry.InitialInterval, cfg.Retry.MaxInterval)),
	)

	view, err := container.NewView(app.ViewArticles)
	if err != nil {
		return err
	}
	defer view.Close()

	feedStream := stream.NewHandler(view, sugar)
	defer feedStream.Close()

	a := NewApp(sugar, meter)
	r := a.Router(article.NewAPI(container, view, sugar), feedStream)

	// Passing -routes to the program will generate docs for the above
	// router definition.
	if routes {
		fmt.Println(docgen.MarkdownRoutesDoc(r, docgen.MarkdownOpts{
			ProjectPath: "github.com/SergeyParamoshkin/articlefeed",
			Intro:       "Welcome to the articlefeed generated docs.",
		}))

		return nil
	}

	diagRouter := chi.NewRouter()
	diagRouter.Get("/metrics", exporter.ServeHTTP)

	return serve(ctx, sugar,
		&http.Server{Addr: cfg.Server.Addr, Handler: r, ReadHeaderTimeout: 10 * time.Second},
		&http.Server{Addr: cfg.Server.DiagAddr, Handler: diagRouter, ReadHeaderTimeout: 10 * time.Second},
	)
}

// Router builds the public router. stream serves GET /articles/stream.
func (a *App) Router(api *article.API, feedStream http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(a.Logger)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.URLFormat)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, err := w.Write([]byte("root."))
		if err != nil {
			a.sugarLogger.Errorw(err.Error())
		}
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		logger := r.Context().Value(CtxKeyLogger).(*zap.SugaredLogger)
		logger.Infow("ping with middle")
		a.clientCompletedCount.Add(r.Context(), 1, statusKey.String("200"))
		_, err := w.Write([]byte("pong"))
		if err != nil {
			a.sugarLogger.Errorw(err.Error())
		}
	})

	r.Route("/articles", api.Routes(feedStream))

	return r
}

func (a *App) Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger := a.sugarLogger.With("request_id", middleware.GetReqID(r.Context()))
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), CtxKeyLogger, logger)))
	})
}

func openSource(ctx context.Context, cfg config.SourceConfig) (app.Source, func(), error) {
	switch cfg.Kind {
	case config.SourceSQLite:
		src, err := datasource.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}

		return src, func() { _ = src.Close() }, nil
	default:
		return datasource.NewFixture(datasource.WithDelays(cfg.ArticlesDelay, cfg.AuthorsDelay)), func() {}, nil
	}
}

// serve runs every server until ctx is done or one of them fails, then shuts
// all of them down.
func serve(ctx context.Context, logger *zap.SugaredLogger, servers ...*http.Server) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, srv := range servers {
		srv := srv
		g.Go(func() error {
			logger.Infow("listening", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", srv.Addr, err)
			}

			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		for _, srv := range servers {
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warnw("shutdown", "addr", srv.Addr, "error", err)
			}
		}

		return nil
	})

	return g.Wait()
}
