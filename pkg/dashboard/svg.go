package dashboard

import (
	"bytes"
	"fmt"
	"html/template"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/twpayne/go-geom"
)

const (
	mapWidth   = 800.0
	mapPadding = 10.0
	nullFill   = "#3a3a3a"
)

// projection maps lon/lat onto SVG user space using Web Mercator, fitted
// to a bounding box.
type projection struct {
	minX, maxY float64
	scale      float64
	width      float64
	height     float64
}

func mercatorY(lat float64) float64 {
	lat = math.Max(-85, math.Min(85, lat))
	return math.Log(math.Tan(math.Pi/4 + lat*math.Pi/360))
}

func newProjection(b *geom.Bounds) projection {
	if b == nil || b.IsEmpty() {
		return projection{scale: 1, width: mapWidth, height: mapWidth}
	}

	minX := b.Min(0) * math.Pi / 180
	maxX := b.Max(0) * math.Pi / 180
	minY, maxY := mercatorY(b.Min(1)), mercatorY(b.Max(1))

	spanX, spanY := maxX-minX, maxY-minY
	if spanX <= 0 {
		spanX = 1e-9
	}
	if spanY <= 0 {
		spanY = 1e-9
	}

	scale := (mapWidth - 2*mapPadding) / spanX
	return projection{
		minX:   minX,
		maxY:   maxY,
		scale:  scale,
		width:  mapWidth,
		height: spanY*scale + 2*mapPadding,
	}
}

func (p projection) point(c geom.Coord) (float64, float64) {
	x := (c[0]*math.Pi/180-p.minX)*p.scale + mapPadding
	y := (p.maxY-mercatorY(c[1]))*p.scale + mapPadding
	return x, y
}

// path renders a multipolygon as SVG path data, one subpath per ring.
func (p projection) path(mp *geom.MultiPolygon) string {
	if mp == nil {
		return ""
	}

	var sb strings.Builder
	for _, poly := range mp.Coords() {
		for _, ring := range poly {
			for i, c := range ring {
				x, y := p.point(c)
				cmd := "L"
				if i == 0 {
					cmd = "M"
				}
				fmt.Fprintf(&sb, "%s%.1f %.1f", cmd, x, y)
			}
			sb.WriteString("Z")
		}
	}
	return sb.String()
}

// ColorScale maps values in [Min, Max] onto a blended gradient.
type ColorScale struct {
	Stops    []colorful.Color
	Min, Max float64
}

// Thermal is a dark-blue to yellow gradient for continuous values.
var Thermal = []string{"#042333", "#2c3395", "#744992", "#b15f82", "#eb7958", "#fbb43d", "#e8fa5b"}

// Binary colours the two classes of a boolean view.
var Binary = [2]string{"#4B0082", "#FF4500"}

func NewColorScale(hexStops []string, min, max float64) (ColorScale, error) {
	cs := ColorScale{Min: min, Max: max}
	for _, h := range hexStops {
		c, err := colorful.Hex(h)
		if err != nil {
			return cs, fmt.Errorf("color stop %s: %w", h, err)
		}
		cs.Stops = append(cs.Stops, c)
	}
	if len(cs.Stops) < 2 {
		return cs, fmt.Errorf("color scale needs at least two stops")
	}
	return cs, nil
}

// Color returns the hex colour of v.
func (cs ColorScale) Color(v float64) string {
	t := 0.0
	if cs.Max > cs.Min {
		t = (v - cs.Min) / (cs.Max - cs.Min)
	}
	t = math.Max(0, math.Min(1, t))

	seg := t * float64(len(cs.Stops)-1)
	i := int(math.Floor(seg))
	if i >= len(cs.Stops)-1 {
		return cs.Stops[len(cs.Stops)-1].Hex()
	}
	if seg == float64(i) {
		return cs.Stops[i].Hex()
	}
	return cs.Stops[i].BlendLab(cs.Stops[i+1], seg-float64(i)).Clamped().Hex()
}

type svgShape struct {
	Path  string
	Fill  string
	Title string
}

type svgMarker struct {
	X, Y, R float64
	Title   string
}

type svgLegendStop struct {
	Offset string
	Color  string
}

type svgDoc struct {
	ID      string
	Width   float64
	Height  float64
	Shapes  []svgShape
	Markers []svgMarker
	Legend  []svgLegendStop
	Min     string
	Max     string
	Classes [][2]string
}

var svgTemplate = template.Must(template.New("map").Parse(`<svg xmlns="http://www.w3.org/2000/svg" class="map" viewBox="0 0 {{printf "%.0f" .Width}} {{printf "%.0f" .Height}}" preserveAspectRatio="xMidYMid meet">
{{- if .Legend}}
<defs><linearGradient id="legend-{{.ID}}" x1="0" x2="1" y1="0" y2="0">
{{- range .Legend}}<stop offset="{{.Offset}}" stop-color="{{.Color}}"/>{{end -}}
</linearGradient></defs>
{{- end}}
<g class="regions" fill-rule="evenodd" stroke="#111" stroke-width="0.6">
{{- range .Shapes}}
<path d="{{.Path}}" fill="{{.Fill}}"><title>{{.Title}}</title></path>
{{- end}}
</g>
{{- if .Markers}}
<g class="markers" fill="#FFA500" fill-opacity="0.65" stroke="#fff" stroke-width="0.8">
{{- range .Markers}}
<circle cx="{{printf "%.1f" .X}}" cy="{{printf "%.1f" .Y}}" r="{{printf "%.1f" .R}}"><title>{{.Title}}</title></circle>
{{- end}}
</g>
{{- end}}
{{- if .Legend}}
<g class="legend" font-size="12" fill="#eee">
<rect x="20" y="{{printf "%.0f" .Height}}" transform="translate(0,-40)" width="200" height="12" fill="url(#legend-{{.ID}})"/>
<text x="20" y="{{printf "%.0f" .Height}}" transform="translate(0,-12)">{{.Min}}</text>
<text x="220" y="{{printf "%.0f" .Height}}" transform="translate(0,-12)" text-anchor="end">{{.Max}}</text>
</g>
{{- end}}
{{- if .Classes}}
<g class="legend" font-size="12" fill="#eee">
{{- range $i, $c := .Classes}}
<rect x="20" y="{{printf "%.0f" $.Height}}" transform="translate(0,{{if $i}}-24{{else}}-44{{end}})" width="14" height="14" fill="{{index $c 0}}"/>
<text x="40" y="{{printf "%.0f" $.Height}}" transform="translate(0,{{if $i}}-12{{else}}-32{{end}})">{{index $c 1}}</text>
{{- end}}
</g>
{{- end}}
</svg>`))

func (d svgDoc) render() (template.HTML, error) {
	var buf bytes.Buffer
	if err := svgTemplate.Execute(&buf, d); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
