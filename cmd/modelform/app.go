package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-modelform/internal/config"
	"github.com/goliatone/go-modelform/internal/server"
	"github.com/goliatone/go-modelform/pkg/concerto"
	"github.com/goliatone/go-modelform/pkg/concerto/openapi"
	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/orchestrator"
	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/renderers/jsontree"
	"github.com/goliatone/go-modelform/pkg/renderers/preact"
	"github.com/goliatone/go-modelform/pkg/renderers/tui"
	"github.com/goliatone/go-modelform/pkg/renderers/vanilla"
)

const (
	preactAssetPrefix  = "/assets/preact"
	vanillaAssetPrefix = "/assets/vanilla"
	watchDebounce      = 150 * time.Millisecond
)

func run(ctx context.Context, cfg config.Config, m mode) error {
	orch, err := buildOrchestrator(ctx, cfg)
	if err != nil {
		return err
	}

	if m.serve {
		return serve(ctx, cfg, orch, m.watch)
	}

	emit := func(orch *orchestrator.Orchestrator) error {
		if m.all {
			return renderAll(ctx, cfg, orch)
		}
		return renderOne(ctx, cfg, orch)
	}
	if err := emit(orch); err != nil {
		return err
	}
	if !m.watch {
		return nil
	}
	if cfg.RendererName() == "tui" {
		return errors.New("-watch cannot be combined with the tui renderer")
	}
	return watchFiles(ctx, watchedPaths(cfg), func() error {
		orch, err := buildOrchestrator(ctx, cfg)
		if err != nil {
			return err
		}
		return emit(orch)
	})
}

// buildOrchestrator loads the configured models and wires every renderer.
func buildOrchestrator(ctx context.Context, cfg config.Config) (*orchestrator.Orchestrator, error) {
	models, err := loadModels(ctx, cfg)
	if err != nil {
		return nil, err
	}

	registry := render.NewRegistry()
	html, err := vanilla.New()
	if err != nil {
		return nil, err
	}
	client, err := preact.New(preact.WithAssetURLPrefix(preactAssetPrefix))
	if err != nil {
		return nil, err
	}
	terminal, err := tui.New()
	if err != nil {
		return nil, err
	}
	registry.MustRegister(html)
	registry.MustRegister(client)
	registry.MustRegister(jsontree.New(jsontree.WithIndent()))
	registry.MustRegister(terminal)

	options := []orchestrator.Option{
		orchestrator.WithModels(models),
		orchestrator.WithRegistry(registry),
		orchestrator.WithDefaultRenderer(cfg.RendererName()),
		orchestrator.WithCustomSelectors(cfg.Selectors),
	}
	if provider := cfg.RelationshipProvider(); provider != nil {
		options = append(options, orchestrator.WithRelationshipProvider(provider))
	}
	if manifests := cfg.Manifests(); len(manifests) > 0 {
		options = append(options, orchestrator.WithThemes(cfg.Theme.Name, cfg.Theme.Variant, manifests...))
	}
	if cfg.Presets != "" {
		presets, err := orchestrator.NewJSONPresetTransformerFromFS(os.DirFS(filepath.Dir(cfg.Presets)), filepath.Base(cfg.Presets))
		if err != nil {
			return nil, err
		}
		options = append(options, orchestrator.WithTransformers(presets))
	}
	return orchestrator.New(options...), nil
}

func loadModels(ctx context.Context, cfg config.Config) (*concerto.ModelManager, error) {
	var files []*concerto.ModelFile
	for _, path := range cfg.Models {
		loaded, err := concerto.LoadFile(path)
		if err != nil {
			return nil, err
		}
		files = append(files, loaded...)
	}
	if cfg.OpenAPI != "" {
		data, err := os.ReadFile(cfg.OpenAPI)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", cfg.OpenAPI, err)
		}
		file, err := openapi.Load(ctx, data, cfg.Namespace)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	if len(files) == 0 {
		return nil, errors.New("no models: pass -model, -openapi or a config file")
	}
	return concerto.NewModelManagerFromFiles(files...)
}

func loadDocument(path string) (*document.Document, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return document.Parse(data)
}

func baseRequest(cfg config.Config) orchestrator.Request {
	return orchestrator.Request{
		Params:       cfg.Params(),
		Renderer:     cfg.RendererName(),
		ThemeName:    cfg.Theme.Name,
		ThemeVariant: cfg.Theme.Variant,
	}
}

func renderOne(ctx context.Context, cfg config.Config, orch *orchestrator.Orchestrator) error {
	typ, err := orch.ResolveType(cfg.Type)
	if err != nil {
		return err
	}
	doc, err := loadDocument(cfg.Data)
	if err != nil {
		return err
	}

	req := baseRequest(cfg)
	req.Type = typ
	req.Document = doc
	out, err := orch.Render(ctx, req)
	if err != nil {
		return err
	}
	return writeOutput(cfg.Output, out.Body)
}

// renderAll renders a default instance of every concrete type, one traversal
// per goroutine.
func renderAll(ctx context.Context, cfg config.Config, orch *orchestrator.Orchestrator) error {
	if cfg.RendererName() == "tui" {
		return errors.New("-all cannot be combined with the tui renderer")
	}
	types := orch.Types()
	outputs := make([]*orchestrator.Output, len(types))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for i, typ := range types {
		g.Go(func() error {
			req := baseRequest(cfg)
			req.Type = typ
			out, err := orch.Render(gctx, req)
			if err != nil {
				return fmt.Errorf("%s: %w", typ, err)
			}
			outputs[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if cfg.Output == "" {
		for i, out := range outputs {
			fmt.Printf("== %s ==\n%s\n", types[i], out.Body)
		}
		return nil
	}
	if err := os.MkdirAll(cfg.Output, 0o755); err != nil {
		return err
	}
	for i, out := range outputs {
		_, name := concerto.SplitFQN(types[i])
		path := filepath.Join(cfg.Output, name+extension(out.ContentType))
		if err := os.WriteFile(path, out.Body, 0o644); err != nil {
			return err
		}
	}
	log.Printf("%d forms written to %s", len(outputs), cfg.Output)
	return nil
}

func extension(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "text/html"):
		return ".html"
	case strings.HasPrefix(contentType, "application/json"):
		return ".json"
	default:
		return ".txt"
	}
}

func writeOutput(path string, body []byte) error {
	if path == "" {
		fmt.Println(string(body))
		return nil
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	log.Printf("Form written to %s", path)
	return nil
}

func serve(ctx context.Context, cfg config.Config, orch *orchestrator.Orchestrator, watch bool) error {
	if cfg.RendererName() == "tui" {
		cfg.Renderer = config.DefaultRenderer
	}
	srv := server.New(orch,
		server.WithRequest(baseRequest(cfg)),
		server.WithAssets(preactAssetPrefix, preact.AssetsFS()),
		server.WithAssets(vanillaAssetPrefix, vanilla.AssetsFS()),
	)
	if watch {
		go func() {
			err := watchFiles(ctx, watchedPaths(cfg), func() error {
				next, err := buildOrchestrator(ctx, cfg)
				if err != nil {
					return err
				}
				srv.Swap(next)
				log.Println("models reloaded")
				return nil
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("watch: %v", err)
			}
		}()
	}
	log.Println("Listening at", cfg.Addr())
	return srv.ListenAndServe(ctx, cfg.Addr())
}

func watchedPaths(cfg config.Config) []string {
	paths := append([]string(nil), cfg.Models...)
	for _, path := range []string{cfg.OpenAPI, cfg.Data, cfg.Presets} {
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}

// watchFiles calls onChange after writes to any of paths settle. Parent
// directories are watched so editors that replace files are still seen.
func watchFiles(ctx context.Context, paths []string, onChange func() error) error {
	if len(paths) == 0 {
		return errors.New("nothing to watch")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]bool, len(paths))
	dirs := make(map[string]bool)
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
		dirs[filepath.Dir(abs)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}

	timer := time.NewTimer(watchDebounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, _ := filepath.Abs(event.Name)
			if !targets[abs] || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)) {
				continue
			}
			timer.Reset(watchDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch: %v", err)
		case <-timer.C:
			if err := onChange(); err != nil {
				log.Printf("re-render failed: %v", err)
			}
		}
	}
}
