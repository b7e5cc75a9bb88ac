package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/a3tai/html-fillable-pdf/internal/form"
)

const (
	// ZapfDingbats glyph "4" is a check mark
	checkGlyph      = "4"
	checkGlyphWidth = 0.846
	textFieldDA     = "/Helv 0 Tf 0 g"
	checkboxDA      = "/ZaDb 0 Tf 0 g"
)

// num formats a float for a content stream with at most four decimals
func num(v float64) string {
	s := strconv.FormatFloat(v, 'f', 4, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimSuffix(s, ".")
	if s == "-0" || s == "" {
		return "0"
	}
	return s
}

func ops(b *bytes.Buffer, format string, args ...float64) {
	parts := make([]any, len(args))
	for i, a := range args {
		parts[i] = num(a)
	}
	fmt.Fprintf(b, format, parts...)
	b.WriteByte('\n')
}

// textAppearance draws the normal appearance of a text widget of size w×h
func textAppearance(style WidgetStyle, w, h float64) []byte {
	var b bytes.Buffer
	b.WriteString("/Tx BMC\n")

	if !style.Bare() && style.ForceBorder {
		bw := style.BorderWidth
		half := bw / 2
		b.WriteString("q\n0 0 0 RG\n")
		ops(&b, "%s w", bw)

		switch style.BorderName {
		case "U":
			ops(&b, "0 %s m %s %s l S", half, w, half)
		case "D":
			if len(style.Dash) == 2 {
				ops(&b, "[%s %s] 0 d", style.Dash[0], style.Dash[1])
			}
			ops(&b, "%s %s %s %s re S", half, half, w-bw, h-bw)
		case "B", "I":
			ops(&b, "%s %s %s %s re S", half, half, w-bw, h-bw)
			light, dark := "1 1 1 RG\n", "0.5 0.5 0.5 RG\n"
			if style.BorderName == "I" {
				light, dark = dark, "0.75 0.75 0.75 RG\n"
			}
			in := bw * 1.5
			b.WriteString(light)
			ops(&b, "%s %s m %s %s l %s %s l S", in, in, in, h-in, w-in, h-in)
			b.WriteString(dark)
			ops(&b, "%s %s m %s %s l %s %s l S", w-in, h-in, w-in, in, in, in)
		default:
			ops(&b, "%s %s %s %s re S", half, half, w-bw, h-bw)
		}
		b.WriteString("Q\n")
	}

	b.WriteString("EMC\n")
	return b.Bytes()
}

// checkboxAppearance draws the on or off state of a square checkbox of edge size
func checkboxAppearance(size float64, on bool) []byte {
	var b bytes.Buffer
	b.WriteString("q\n0 0 0 RG\n1 w\n")
	ops(&b, "0.5 0.5 %s %s re S", size-1, size-1)
	b.WriteString("Q\n")

	if on {
		fontSize := size * 0.8
		x := (size - checkGlyphWidth*fontSize) / 2
		y := (size - fontSize*0.7) / 2
		b.WriteString("q\nBT\n0 g\n")
		ops(&b, "/ZaDb %s Tf", fontSize)
		ops(&b, "%s %s Td", x, y)
		b.WriteString("(" + checkGlyph + ") Tj\nET\nQ\n")
	}
	return b.Bytes()
}

// outlineOps draws the fallback outline of a degraded widget in page space
func outlineOps(r form.Rect) []byte {
	var b bytes.Buffer
	b.WriteString("q\n0 0 0 RG\n0.5 w\n")
	ops(&b, "%s %s %s %s re S", r.X, r.Y, r.Width, r.Height)
	b.WriteString("Q\n")
	return b.Bytes()
}
