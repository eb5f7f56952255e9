package render

import (
	"context"

	"github.com/goliatone/go-modelform/pkg/ui"
)

// Renderer converts an element tree produced by the visitor into a byte
// representation (HTML, JSON, an interactive terminal session, ...).
type Renderer interface {
	Name() string
	ContentType() string
	Render(ctx context.Context, root *ui.Element, options RenderOptions) ([]byte, error)
}
