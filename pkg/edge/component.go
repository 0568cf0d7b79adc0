package edge

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Component renders the named template as a templ.Component so that edge
// templates can be embedded in templ layouts or served with templ.Handler.
func (e *Edge) Component(name string, data map[string]interface{}) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := e.Render(name, data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}

// Component renders the procedure as a templ.Component.
func (p *Procedure) Component(data map[string]interface{}) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := p.Render(data)
		if err != nil {
			return err
		}
		_, err = io.WriteString(w, out)
		return err
	})
}
