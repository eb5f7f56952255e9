package tui

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-modelform/pkg/document"
	"github.com/goliatone/go-modelform/pkg/render"
	"github.com/goliatone/go-modelform/pkg/ui"
)

const datetimeLayout = "2006-01-02T15:04"

// Renderer implements render.Renderer as an interactive terminal session. It
// prompts for every editable leaf of the tree, writes answers back through the
// element callbacks and returns the edited document.
type Renderer struct {
	driver            PromptDriver
	outputFormat      OutputFormat
	submitTransformer SubmitTransformer
	theme             Theme
}

// New constructs a TUI renderer with defaults (survey driver, JSON output).
func New(options ...Option) (*Renderer, error) {
	r := &Renderer{
		driver:       newSurveyDriver(),
		outputFormat: OutputFormatJSON,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}

	switch r.outputFormat {
	case OutputFormatJSON, OutputFormatFormURLEncoded, OutputFormatPrettyText:
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", r.outputFormat)
	}
	return r, nil
}

// Name reports the renderer identifier.
func (r *Renderer) Name() string {
	return "tui"
}

// ContentType reports the serialization format used by Render.
func (r *Renderer) ContentType() string {
	switch r.outputFormat {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// session is the state of one Render call.
type session struct {
	doc    *document.Document
	opts   render.RenderOptions
	errors map[string][]string
}

// Render walks root prompting for each editable leaf. Answers go through the
// element OnChange callback when present, otherwise into opts.Document (or a
// fresh document when none is given). Array add and remove actions call
// opts.Rerender to obtain the widgets of the new entries.
func (r *Renderer) Render(ctx context.Context, root *ui.Element, opts render.RenderOptions) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.driver == nil {
		return nil, errors.New("tui: prompt driver is nil")
	}

	doc := opts.Document
	if doc == nil {
		var err error
		if doc, err = document.Parse([]byte("{}")); err != nil {
			return nil, err
		}
	}
	render.LocalizeTree(root, opts)
	mapping := render.MapErrorPayload(root, opts.Errors)
	s := &session{doc: doc, opts: opts, errors: mapping.Fields}

	if opts.Title != "" {
		if err := r.info(ctx, opts.Title); err != nil {
			return nil, err
		}
	}
	for _, msg := range mapping.Form {
		if err := r.info(ctx, r.theme.ErrorPrefix+msg); err != nil {
			return nil, err
		}
	}

	if err := r.walk(ctx, s, root); err != nil {
		return nil, err
	}

	value := doc.Value()
	if r.submitTransformer != nil {
		values, _ := value.(map[string]any)
		transformed, err := r.submitTransformer(values)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
		value = transformed
	}
	return r.serialize(value)
}

func (r *Renderer) walk(ctx context.Context, s *session, el *ui.Element) error {
	if el == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, msg := range s.errors[el.Key] {
		if err := r.info(ctx, fmt.Sprintf("%s%s: %s", r.theme.ErrorPrefix, displayLabel(el), msg)); err != nil {
			return err
		}
	}

	if el.IsLeaf() {
		if el.Props.TextOnly || el.Props.ReadOnly {
			return r.info(ctx, fmt.Sprintf("%s: %s", displayLabel(el), displayValue(el)))
		}
		return r.promptLeaf(ctx, s, el)
	}

	switch el.Kind {
	case ui.KindArray:
		return r.promptArray(ctx, s, el)
	case ui.KindGroup, ui.KindArrayElement:
	default:
		if !el.Props.SkipLabel && el.Props.Label != "" {
			if err := r.info(ctx, el.Props.Label); err != nil {
				return err
			}
		}
	}
	for _, child := range el.Children {
		if err := r.walk(ctx, s, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *Renderer) promptLeaf(ctx context.Context, s *session, el *ui.Element) error {
	switch el.Kind {
	case ui.KindCheckbox:
		return r.promptBoolean(ctx, s, el)
	case ui.KindSelect, ui.KindRelationship:
		if len(el.Props.Options) > 0 {
			return r.promptSelect(ctx, s, el)
		}
		return r.promptString(ctx, s, el)
	case ui.KindDateTime:
		return r.promptDateTime(ctx, s, el)
	default:
		if el.Props.InputType == "number" {
			return r.promptNumber(ctx, s, el)
		}
		return r.promptString(ctx, s, el)
	}
}

func (r *Renderer) promptString(ctx context.Context, s *session, el *ui.Element) error {
	label := displayLabel(el)
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: r.theme.PromptPrefix + label,
			Default: scalarString(el.Props.Value),
			Help:    displayHelp(el),
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if el.Props.Required {
				r.invalid(ctx, label, errors.New("required"))
				continue
			}
			if el.Props.Value == nil {
				return nil
			}
		}
		return r.write(s, el, input)
	}
}

func (r *Renderer) promptBoolean(ctx context.Context, s *session, el *ui.Element) error {
	current, _ := el.Props.Value.(bool)
	resp, err := r.driver.Confirm(ctx, ConfirmConfig{
		Message: r.theme.PromptPrefix + displayLabel(el),
		Default: current,
		Help:    displayHelp(el),
	})
	if err != nil {
		return err
	}
	return r.write(s, el, resp)
}

func (r *Renderer) promptNumber(ctx context.Context, s *session, el *ui.Element) error {
	label := displayLabel(el)
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: r.theme.PromptPrefix + label,
			Default: scalarString(el.Props.Value),
			Help:    displayHelp(el),
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if el.Props.Required {
				r.invalid(ctx, label, errors.New("required"))
				continue
			}
			if el.Props.Value == nil {
				return nil
			}
			return r.write(s, el, nil)
		}
		parsed, err := strconv.ParseFloat(input, 64)
		if err != nil {
			r.invalid(ctx, label, err)
			continue
		}
		return r.write(s, el, parsed)
	}
}

func (r *Renderer) promptDateTime(ctx context.Context, s *session, el *ui.Element) error {
	label := displayLabel(el)
	for {
		input, err := r.driver.Input(ctx, InputConfig{
			Message: r.theme.PromptPrefix + label,
			Default: scalarString(el.Props.Value),
			Help:    displayHelp(el),
		})
		if err != nil {
			return err
		}
		input = strings.TrimSpace(input)
		if input == "" {
			if el.Props.Required {
				r.invalid(ctx, label, errors.New("required"))
				continue
			}
			if el.Props.Value == nil {
				return nil
			}
			return r.write(s, el, nil)
		}
		parsed, err := parseDateTime(input)
		if err != nil {
			r.invalid(ctx, label, err)
			continue
		}
		return r.write(s, el, parsed.UTC().Format(time.RFC3339))
	}
}

func (r *Renderer) promptSelect(ctx context.Context, s *session, el *ui.Element) error {
	options := el.Props.Options
	texts := make([]string, len(options))
	defaultIdx := -1
	current := scalarString(el.Props.Value)
	for i, option := range options {
		texts[i] = option.Text
		if texts[i] == "" {
			texts[i] = option.Value
		}
		if option.Value == current {
			defaultIdx = i
		}
	}

	label := displayLabel(el)
	for {
		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      r.theme.PromptPrefix + label,
			Options:      texts,
			DefaultIndex: defaultIdx,
			Help:         displayHelp(el),
		})
		if err != nil {
			return err
		}
		if idx < 0 || idx >= len(options) {
			r.invalid(ctx, label, errors.New("unknown selection"))
			continue
		}
		return r.write(s, el, options[idx].Value)
	}
}

// promptArray prompts for every entry of the array, then offers to add or
// remove entries until the user continues.
func (r *Renderer) promptArray(ctx context.Context, s *session, el *ui.Element) error {
	if !el.Props.SkipLabel && el.Props.Label != "" {
		if err := r.info(ctx, el.Props.Label); err != nil {
			return err
		}
	}
	for _, child := range el.Children {
		if err := r.walk(ctx, s, child); err != nil {
			return err
		}
	}

	label := el.Props.Label
	if label == "" {
		label = el.Key
	}
	for {
		choices := []string{"Continue"}
		actions := []func() error{nil}
		if el.Props.Add != nil {
			choices = append(choices, "Add "+label)
			actions = append(actions, el.Props.Add)
		}
		for _, child := range el.Children {
			if child.Props.Remove != nil {
				choices = append(choices, fmt.Sprintf("Remove %s #%d", label, child.Props.Index+1))
				actions = append(actions, child.Props.Remove)
			}
		}
		if len(choices) == 1 {
			return nil
		}

		idx, err := r.driver.Select(ctx, SelectConfig{
			Message:      r.theme.PromptPrefix + label,
			Options:      choices,
			DefaultIndex: 0,
		})
		if err != nil {
			return err
		}
		if idx <= 0 || idx >= len(choices) {
			return nil
		}

		before := len(el.Children)
		if err := actions[idx](); err != nil {
			return fmt.Errorf("tui: %s: %w", strings.ToLower(choices[idx]), err)
		}
		next, err := refresh(s, el.Key)
		if err != nil {
			return err
		}
		el = next
		if n := len(el.Children); n > before {
			if err := r.walk(ctx, s, el.Children[n-1]); err != nil {
				return err
			}
		}
	}
}

// refresh rebuilds the tree and returns the array bound to key.
func refresh(s *session, key string) (*ui.Element, error) {
	if s.opts.Rerender == nil {
		return nil, ErrRerenderRequired
	}
	root, err := s.opts.Rerender()
	if err != nil {
		return nil, fmt.Errorf("tui: rerender: %w", err)
	}
	el := ui.Find(root, key)
	if el == nil || el.Kind != ui.KindArray {
		return nil, fmt.Errorf("tui: array %q missing after rerender", key)
	}
	render.LocalizeTree(el, s.opts)
	return el, nil
}

func (r *Renderer) write(s *session, el *ui.Element, value any) error {
	if el.Props.OnChange != nil {
		if err := el.Props.OnChange(el.Key, value); err != nil {
			return fmt.Errorf("tui: %s: %w", el.Key, err)
		}
		return nil
	}
	if err := s.doc.Set(el.Key, value); err != nil {
		return fmt.Errorf("tui: %s: %w", el.Key, err)
	}
	return nil
}

func (r *Renderer) info(ctx context.Context, msg string) error {
	return r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func (r *Renderer) invalid(ctx context.Context, label string, err error) {
	_ = r.driver.Info(ctx, fmt.Sprintf("%sInvalid %s: %v", r.theme.ErrorPrefix, label, err))
}

func displayLabel(el *ui.Element) string {
	if el.Props.Label != "" && !el.Props.SkipLabel {
		return el.Props.Label
	}
	if el.Key != "" {
		return el.Key
	}
	return el.Props.Label
}

var (
	helpPolicyOnce sync.Once
	helpPolicy     *bluemonday.Policy
)

// displayHelp strips markup from help text for terminal output.
func displayHelp(el *ui.Element) string {
	if el.Props.Help == "" {
		return ""
	}
	helpPolicyOnce.Do(func() {
		helpPolicy = bluemonday.StrictPolicy()
	})
	return strings.TrimSpace(html.UnescapeString(helpPolicy.Sanitize(el.Props.Help)))
}

func displayValue(el *ui.Element) string {
	switch v := el.Props.Value.(type) {
	case bool:
		if v {
			return "Yes"
		}
		return "No"
	case nil:
		return ""
	}
	current := scalarString(el.Props.Value)
	for _, option := range el.Props.Options {
		if option.Value == current && option.Text != "" {
			return option.Text
		}
	}
	return current
}

func parseDateTime(raw string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, datetimeLayout, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected RFC3339 or %s", datetimeLayout)
}
