// Command modelform renders forms for Concerto model types.
//
//	modelform -model models/sales.yaml -type Order -data order.json
//	modelform -model models/sales.yaml -renderer tui -type Order > order.json
//	modelform -openapi api.yaml -namespace org.acme.api@1.0.0 -all -output forms/
//	modelform -config modelform.yaml -serve -watch
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/goliatone/go-modelform/internal/config"
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type mode struct {
	all   bool
	watch bool
	serve bool
}

func main() {
	var models stringList
	flag.Var(&models, "model", "model file (JSON or YAML AST); repeatable")
	openAPI := flag.String("openapi", "", "OpenAPI document whose component schemas are used as models")
	namespace := flag.String("namespace", "", "namespace assigned to OpenAPI schemas")
	data := flag.String("data", "", "JSON document to edit (a default instance is generated if empty)")
	typeName := flag.String("type", "", "root type, short or fully qualified")
	renderer := flag.String("renderer", "", "renderer to use: vanilla, preact, json or tui")
	output := flag.String("output", "", "output file, or directory with -all (stdout if empty)")
	configPath := flag.String("config", "", "YAML configuration file")
	presets := flag.String("presets", "", "JSON preset file applied to every element tree")
	themeName := flag.String("theme", "", "theme name")
	variant := flag.String("variant", "", "theme variant")
	addr := flag.String("addr", "", "preview server address")
	disabled := flag.Bool("disabled", false, "render every field read-only")
	textOnly := flag.Bool("text-only", false, "render values as plain text")
	hideIDs := flag.Bool("hide-ids", false, "hide identifier fields")
	toggle := flag.Bool("toggle", false, "render booleans as toggles")
	sample := flag.Bool("sample", false, "fill generated documents with sample data")
	optional := flag.Bool("optional", false, "include optional fields in generated documents")
	all := flag.Bool("all", false, "render every concrete type")
	watch := flag.Bool("watch", false, "re-render when model or data files change")
	serve := flag.Bool("serve", false, "start the preview server")
	flag.Parse()

	var cfg config.Config
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	override := config.Config{
		Models:    models,
		OpenAPI:   *openAPI,
		Namespace: *namespace,
		Type:      *typeName,
		Data:      *data,
		Renderer:  *renderer,
		Output:    *output,
		Presets:   *presets,
		Theme:     config.ThemeSelection{Name: *themeName, Variant: *variant},
		Server:    config.ServerConfig{Addr: *addr},
		Visitor: config.VisitorConfig{
			Disabled:              *disabled,
			TextOnly:              *textOnly,
			HideIdentifiers:       *hideIDs,
			IncludeOptionalFields: *optional,
			IncludeSampleData:     *sample,
		},
	}
	if *toggle {
		override.Visitor.CheckboxStyle = "toggle"
	}
	cfg = cfg.Merge(override)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, mode{all: *all, watch: *watch, serve: *serve}); err != nil {
		log.Fatalf("modelform: %v", err)
	}
}
