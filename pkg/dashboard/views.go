package dashboard

import (
	"fmt"
	"html/template"
	"math"

	"github.com/anrid/colombia-stats/pkg/stats"
	"github.com/twpayne/go-geom/xy"
)

const maxMarkerRadius = 28.0

// View is one rendered map tab.
type View struct {
	ID      string
	Label   string
	Title   string
	Caption string
	SVG     template.HTML
}

type valueFunc func(r *stats.Region) (float64, bool)

func programCount(r *stats.Region) (float64, bool) {
	if r.ProgramCount == nil {
		return 0, false
	}
	return float64(*r.ProgramCount), true
}

func logCount(r *stats.Region) (float64, bool) {
	if r.LogCount == nil {
		return 0, false
	}
	return *r.LogCount, true
}

func averageEnrollment(r *stats.Region) (float64, bool) {
	if r.AverageEnrollment == nil {
		return 0, false
	}
	return *r.AverageEnrollment, true
}

// BuildViews renders every dashboard view of ds.
func BuildViews(ds *stats.Dataset) ([]View, error) {
	p := stats.Printer()

	builders := []struct {
		view  View
		build func(*stats.Dataset, string) (template.HTML, error)
	}{
		{
			view: View{
				ID:      "programas",
				Label:   "Mapa Coroplético",
				Title:   "Cantidad de Programas por Departamento",
				Caption: "Cantidad de programas en escala lineal. Pocos departamentos concentran la mayor parte de la oferta, por lo que el resto del país queda en el extremo inferior de la escala.",
			},
			build: func(ds *stats.Dataset, id string) (template.HTML, error) {
				return choropleth(ds, id, programCount, func(v float64) string { return p.Sprintf("%.0f", v) })
			},
		},
		{
			view: View{
				ID:      "logaritmico",
				Label:   "Mapa Logarítmico",
				Title:   "Cantidad de Programas (Escala Logarítmica)",
				Caption: "El logaritmo natural de la cantidad de programas permite distinguir a los departamentos intermedios. Los departamentos sin programas o sin datos aparecen en gris.",
			},
			build: func(ds *stats.Dataset, id string) (template.HTML, error) {
				return choropleth(ds, id, logCount, func(v float64) string { return p.Sprintf("%.2f", v) })
			},
		},
		{
			view: View{
				ID:      "matriculados",
				Label:   "Promedio de Matriculados",
				Title:   "Promedio de Matriculados por Departamento",
				Caption: "Promedio de estudiantes matriculados por programa en cada departamento.",
			},
			build: func(ds *stats.Dataset, id string) (template.HTML, error) {
				return choropleth(ds, id, averageEnrollment, func(v float64) string { return p.Sprintf("%.1f", v) })
			},
		},
		{
			view: View{
				ID:      "top25",
				Label:   "Top 25% de Programas",
				Title:   "Departamentos en el Top 25% de Programas",
				Caption: "Departamentos cuya cantidad de programas supera el percentil 75 de todos los departamentos.",
			},
			build: topQuartile,
		},
		{
			view: View{
				ID:      "marcadores",
				Label:   "Marcadores Proporcionales",
				Title:   "Programas por Departamento (Marcadores Proporcionales)",
				Caption: "El área de cada círculo es proporcional a la cantidad de programas ofrecidos en el departamento.",
			},
			build: func(ds *stats.Dataset, id string) (template.HTML, error) {
				return proportionalMarkers(ds, id, func(v float64) string { return p.Sprintf("%.0f", v) })
			},
		},
	}

	views := make([]View, 0, len(builders))
	for _, b := range builders {
		svg, err := b.build(ds, b.view.ID)
		if err != nil {
			return nil, fmt.Errorf("view %s: %w", b.view.ID, err)
		}
		v := b.view
		v.SVG = svg
		views = append(views, v)
	}
	return views, nil
}

func valueRange(ds *stats.Dataset, value valueFunc) (min, max float64, ok bool) {
	min, max = math.Inf(1), math.Inf(-1)
	for _, r := range ds.Regions {
		if v, has := value(r); has {
			min, max, ok = math.Min(min, v), math.Max(max, v), true
		}
	}
	return min, max, ok
}

func choropleth(ds *stats.Dataset, id string, value valueFunc, format func(float64) string) (template.HTML, error) {
	proj := newProjection(ds.Bounds())
	doc := svgDoc{ID: id, Width: proj.width, Height: proj.height}

	min, max, ok := valueRange(ds, value)
	scale, err := NewColorScale(Thermal, min, max)
	if err != nil {
		return "", err
	}

	for _, r := range ds.Regions {
		shape := svgShape{Path: proj.path(r.Geometry), Fill: nullFill, Title: r.Name + ": sin datos"}
		if v, has := value(r); has {
			shape.Fill = scale.Color(v)
			shape.Title = r.Name + ": " + format(v)
		}
		doc.Shapes = append(doc.Shapes, shape)
	}

	if ok {
		for i, s := range scale.Stops {
			doc.Legend = append(doc.Legend, svgLegendStop{
				Offset: fmt.Sprintf("%.0f%%", 100*float64(i)/float64(len(scale.Stops)-1)),
				Color:  s.Hex(),
			})
		}
		doc.Min, doc.Max = format(min), format(max)
	}

	return doc.render()
}

func topQuartile(ds *stats.Dataset, id string) (template.HTML, error) {
	proj := newProjection(ds.Bounds())
	doc := svgDoc{
		ID:     id,
		Width:  proj.width,
		Height: proj.height,
		Classes: [][2]string{
			{Binary[0], "No"},
			{Binary[1], "Top 25%"},
		},
	}

	for _, r := range ds.Regions {
		shape := svgShape{Path: proj.path(r.Geometry), Fill: Binary[0], Title: r.Name + ": no"}
		if r.TopQuartile {
			shape.Fill = Binary[1]
			shape.Title = r.Name + ": top 25%"
		}
		doc.Shapes = append(doc.Shapes, shape)
	}

	return doc.render()
}

func proportionalMarkers(ds *stats.Dataset, id string, format func(float64) string) (template.HTML, error) {
	proj := newProjection(ds.Bounds())
	doc := svgDoc{ID: id, Width: proj.width, Height: proj.height}

	_, max, _ := valueRange(ds, programCount)

	for _, r := range ds.Regions {
		doc.Shapes = append(doc.Shapes, svgShape{Path: proj.path(r.Geometry), Fill: nullFill, Title: r.Name})

		v, has := programCount(r)
		if !has || v <= 0 || r.Geometry == nil || r.Geometry.Empty() {
			continue
		}
		c, err := xy.Centroid(r.Geometry)
		if err != nil {
			return "", fmt.Errorf("centroid of %s: %w", r.Name, err)
		}
		x, y := proj.point(c)
		doc.Markers = append(doc.Markers, svgMarker{
			X:     x,
			Y:     y,
			R:     maxMarkerRadius * math.Sqrt(v/max),
			Title: r.Name + ": " + format(v),
		})
	}

	return doc.render()
}
