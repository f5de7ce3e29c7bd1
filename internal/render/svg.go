package render

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"image/color"
	"strings"
	"time"

	"github.com/harrylevesque/qrgen/internal/models"
)

// SVG renders payload as a scalable image. Modules are drawn in module units
// and scaled through the viewBox. A logo is referenced, not embedded, so a
// file path is never written into the document.
func (r *Renderer) SVG(payload string, s models.RenderSettings) ([]byte, error) {
	start := time.Now()
	out, err := r.svg(payload, s)
	r.observe("svg", start, err)
	return out, err
}

func (r *Renderer) svg(payload string, s models.RenderSettings) ([]byte, error) {
	sym, err := r.prepare(payload, s)
	if err != nil {
		return nil, err
	}
	bitmap := sym.qr.Bitmap()
	n := len(bitmap)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" shape-rendering="crispEdges">`, sym.size, sym.size, n, n)
	fmt.Fprintf(&buf, `<rect width="%d" height="%d"%s/>`, n, n, fill(sym.bg))
	buf.WriteString(`<path`)
	buf.WriteString(fill(sym.fg))
	buf.WriteString(` d="`)
	for y, row := range bitmap {
		for x := 0; x < len(row); {
			if !row[x] {
				x++
				continue
			}
			run := 1
			for x+run < len(row) && row[x+run] {
				run++
			}
			fmt.Fprintf(&buf, "M%d %dh%dv1h-%dz", x, y, run, run)
			x += run
		}
	}
	buf.WriteString(`"/>`)

	if ref := strings.TrimSpace(s.LogoURL); isRemoteRef(ref) {
		unit := float64(n) / float64(sym.size)
		edge := float64(sym.logoEdge(s.LogoSize)) * unit
		pad := platePadding * unit
		at := (float64(n) - edge) / 2
		fmt.Fprintf(&buf, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f"%s/>`, at-pad, at-pad, edge+2*pad, edge+2*pad, fill(sym.bg))
		fmt.Fprintf(&buf, `<image x="%.2f" y="%.2f" width="%.2f" height="%.2f" preserveAspectRatio="none" href="`, at, at, edge, edge)
		if err := xml.EscapeText(&buf, []byte(ref)); err != nil {
			return nil, err
		}
		buf.WriteString(`"/>`)
	}
	buf.WriteString("</svg>\n")
	return buf.Bytes(), nil
}

func isRemoteRef(ref string) bool {
	return strings.HasPrefix(ref, "data:") || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}

func fill(c color.NRGBA) string {
	if c.A == 0xff {
		return fmt.Sprintf(` fill="%s"`, hexColor(c))
	}
	return fmt.Sprintf(` fill="%s" fill-opacity="%.3f"`, hexColor(c), float64(c.A)/255)
}
