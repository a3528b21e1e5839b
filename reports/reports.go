// Package reports computes read-only summaries over a finished graph: a
// structural validation and the analytic tables the CLI prints.
package reports

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/graph"
	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/normalize"
)

// Measurement names written by the builder, used to pick one node out of a
// record's additionalProperty links.
const (
	allocationName  = "Dotación de agua"
	consumptionName = "Consumo estimado de agua"
)

// Validation is the structural health check of a graph. OK is true when no
// problem was found.
type Validation struct {
	OK             bool           `json:"ok"`
	Facts          int            `json:"facts"`
	Classes        map[string]int `json:"classes"`
	Properties     map[string]int `json:"properties"`
	PlacesByKind   map[string]int `json:"places_by_kind"`
	Crops          int            `json:"crops"`
	Records        int            `json:"records"`
	Linked         int            `json:"linked"`
	NegativeValues int            `json:"negative_values"`
	Problems       []string       `json:"problems,omitempty"`
}

// expectedClasses must all have at least one instance in a built graph.
var expectedClasses = []struct {
	name string
	iri  string
}{
	{"Place", graph.SchemaPlace},
	{"Product", graph.SchemaProduct},
	{"Event", graph.SchemaEvent},
	{"QuantitativeValue", graph.SchemaQuantitativeValue},
	{"MonetaryAmount", graph.SchemaMonetaryAmount},
}

// expectedProperties must all appear in a built graph.
var expectedProperties = []struct {
	name string
	iri  string
}{
	{"name", graph.SchemaName},
	{"location", graph.SchemaLocation},
	{"value", graph.SchemaValue},
	{"unitCode", graph.SchemaUnitCode},
}

var placeKinds = []string{"provincia", "comarca", "municipio"}

// Validate checks that a graph has the shape a build pass produces. An
// empty graph fails outright; every other finding is collected into
// Problems.
func Validate(g *graph.Store) *Validation {
	v := &Validation{
		Facts:        g.Len(),
		Classes:      make(map[string]int),
		Properties:   make(map[string]int),
		PlacesByKind: make(map[string]int),
	}
	if v.Facts == 0 {
		v.Problems = append(v.Problems, "graph contains no facts")
		return v
	}

	for _, c := range expectedClasses {
		n := len(g.SubjectsWith(graph.RDFType, graph.IRI(c.iri)))
		v.Classes[c.name] = n
		if n == 0 {
			v.Problems = append(v.Problems, "no "+c.name+" entities")
		}
	}
	v.Crops = v.Classes["Product"]
	v.Records = v.Classes["Event"]

	for _, kind := range placeKinds {
		v.PlacesByKind[kind] = len(g.SubjectsWith(graph.SchemaAdditionalType, graph.Text(kind, "es")))
	}

	predicates := make(map[string]int)
	linked := make(map[string]struct{})
	for _, t := range g.Triples() {
		predicates[t.Predicate]++
		if t.Predicate == graph.OWLSameAs {
			linked[t.Subject] = struct{}{}
		}
		if t.Predicate == graph.SchemaValue {
			if f, ok := t.Object.Float(); ok && f < 0 {
				v.NegativeValues++
			}
		}
	}
	v.Linked = len(linked)

	for _, p := range expectedProperties {
		n := predicates[p.iri]
		v.Properties[p.name] = n
		if n == 0 {
			v.Problems = append(v.Problems, "no schema:"+p.name+" facts")
		}
	}
	if v.NegativeValues > 0 {
		v.Problems = append(v.Problems, fmt.Sprintf("%d negative measurement values", v.NegativeValues))
	}

	v.OK = len(v.Problems) == 0
	return v
}

// MunicipalityArea is one row of the cultivated-area ranking.
type MunicipalityArea struct {
	Municipality string  `json:"municipality"`
	Records      int     `json:"records"`
	TotalArea    float64 `json:"total_area"`
}

// TopMunicipalitiesByArea sums the cultivated area of every record per
// municipality, largest first. n <= 0 returns all rows.
func TopMunicipalitiesByArea(g *graph.Store, n int) []MunicipalityArea {
	type agg struct {
		name    string
		records int
		area    float64
	}
	byMuni := make(map[string]*agg)
	for _, rec := range records(g) {
		muni, ok := g.Object(rec, graph.SchemaLocation)
		if !ok || !muni.IsIRI() {
			continue
		}
		area, ok := measurementValue(g, rec, graph.SchemaArea, "")
		if !ok {
			continue
		}
		a := byMuni[muni.Value]
		if a == nil {
			a = &agg{name: displayName(g, muni.Value)}
			byMuni[muni.Value] = a
		}
		a.records++
		a.area += area
	}

	rows := make([]MunicipalityArea, 0, len(byMuni))
	for _, a := range byMuni {
		rows = append(rows, MunicipalityArea{Municipality: a.name, Records: a.records, TotalArea: a.area})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalArea != rows[j].TotalArea {
			return rows[i].TotalArea > rows[j].TotalArea
		}
		return rows[i].Municipality < rows[j].Municipality
	})
	return limit(rows, n)
}

// GroupConsumption is one row of the water-consumption ranking.
type GroupConsumption struct {
	Group       string  `json:"group"`
	Records     int     `json:"records"`
	Consumption float64 `json:"consumption"`
}

// ConsumptionByCropGroup sums the estimated water consumption of every
// record per crop group, thirstiest first. n <= 0 returns all rows.
func ConsumptionByCropGroup(g *graph.Store, n int) []GroupConsumption {
	type agg struct {
		records     int
		consumption float64
	}
	byGroup := make(map[string]*agg)
	for _, rec := range records(g) {
		crop, ok := g.Object(rec, graph.SchemaAbout)
		if !ok || !crop.IsIRI() {
			continue
		}
		category, ok := g.Object(crop.Value, graph.SchemaCategory)
		if !ok {
			continue
		}
		consumption, ok := measurementValue(g, rec, graph.SchemaAdditionalProperty, consumptionName)
		if !ok {
			continue
		}
		a := byGroup[category.Value]
		if a == nil {
			a = &agg{}
			byGroup[category.Value] = a
		}
		a.records++
		a.consumption += consumption
	}

	rows := make([]GroupConsumption, 0, len(byGroup))
	for group, a := range byGroup {
		rows = append(rows, GroupConsumption{Group: group, Records: a.records, Consumption: a.consumption})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Consumption != rows[j].Consumption {
			return rows[i].Consumption > rows[j].Consumption
		}
		return rows[i].Group < rows[j].Group
	})
	return limit(rows, n)
}

// ComarcaStat is one row of the per-comarca breakdown.
type ComarcaStat struct {
	Comarca        string  `json:"comarca"`
	Municipalities int     `json:"municipalities"`
	TotalArea      float64 `json:"total_area"`
	MeanAllocation float64 `json:"mean_allocation"`
}

// ComarcaStats reports, per comarca of the named province, its distinct
// municipality count, total cultivated area and mean water allocation.
// An unknown province yields no rows. n <= 0 returns all rows.
func ComarcaStats(g *graph.Store, province string, n int) []ComarcaStat {
	provURI := placeURI(g, "provincia", province)
	if provURI == "" {
		return nil
	}

	var rows []ComarcaStat
	for _, comarca := range g.SubjectsWith(graph.SchemaContainedInPlace, graph.IRI(provURI)) {
		row := ComarcaStat{Comarca: displayName(g, comarca)}
		var allocSum float64
		var allocN int
		for _, muni := range g.SubjectsWith(graph.SchemaContainedInPlace, graph.IRI(comarca)) {
			row.Municipalities++
			for _, rec := range g.SubjectsWith(graph.SchemaLocation, graph.IRI(muni)) {
				// Crops share the location predicate with records.
				if !g.Has(rec, graph.RDFType, graph.IRI(graph.SchemaEvent)) {
					continue
				}
				if area, ok := measurementValue(g, rec, graph.SchemaArea, ""); ok {
					row.TotalArea += area
				}
				if alloc, ok := measurementValue(g, rec, graph.SchemaAdditionalProperty, allocationName); ok {
					allocSum += alloc
					allocN++
				}
			}
		}
		if allocN > 0 {
			row.MeanAllocation = allocSum / float64(allocN)
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalArea != rows[j].TotalArea {
			return rows[i].TotalArea > rows[j].TotalArea
		}
		return rows[i].Comarca < rows[j].Comarca
	})
	return limit(rows, n)
}

func records(g *graph.Store) []string {
	return g.SubjectsWith(graph.RDFType, graph.IRI(graph.SchemaEvent))
}

// measurementValue follows a record's measurement links through property
// and returns the first numeric value. A non-empty name restricts the
// match to the measurement carrying that Spanish name.
func measurementValue(g *graph.Store, record, property, name string) (float64, bool) {
	for _, obj := range g.Objects(record, property) {
		if !obj.IsIRI() {
			continue
		}
		if name != "" {
			got, ok := g.Object(obj.Value, graph.SchemaName)
			if !ok || got != graph.Text(name, "es") {
				continue
			}
		}
		if val, ok := g.Object(obj.Value, graph.SchemaValue); ok {
			return val.Float()
		}
	}
	return 0, false
}

func displayName(g *graph.Store, subject string) string {
	if name, ok := g.Object(subject, graph.SchemaName); ok {
		return name.Value
	}
	return subject
}

// placeURI rebuilds the identifier the builder would mint for a place name
// and returns it when the entity exists.
func placeURI(g *graph.Store, kind, name string) string {
	slug := normalize.CleanName(name)
	if slug == "" {
		return ""
	}
	uri := graph.NS + kind + "/" + slug
	if _, ok := g.Object(uri, graph.RDFType); !ok {
		return ""
	}
	return uri
}

func limit[T any](rows []T, n int) []T {
	if n > 0 && len(rows) > n {
		return rows[:n]
	}
	return rows
}

// ---- text rendering ----

// Render writes the validation as an aligned table.
func (v *Validation) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	status := "OK"
	if !v.OK {
		status = "PROBLEMS"
	}
	fmt.Fprintf(tw, "status\t%s\n", status)
	fmt.Fprintf(tw, "facts\t%d\n", v.Facts)
	for _, c := range expectedClasses {
		fmt.Fprintf(tw, "%s\t%d\n", c.name, v.Classes[c.name])
	}
	for _, kind := range placeKinds {
		fmt.Fprintf(tw, "places (%s)\t%d\n", kind, v.PlacesByKind[kind])
	}
	for _, p := range expectedProperties {
		fmt.Fprintf(tw, "schema:%s\t%d\n", p.name, v.Properties[p.name])
	}
	fmt.Fprintf(tw, "linked entities\t%d\n", v.Linked)
	fmt.Fprintf(tw, "negative values\t%d\n", v.NegativeValues)
	for _, p := range v.Problems {
		fmt.Fprintf(tw, "problem\t%s\n", p)
	}
	return tw.Flush()
}

// RenderMunicipalities writes the area ranking as an aligned table.
func RenderMunicipalities(w io.Writer, rows []MunicipalityArea) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MUNICIPALITY\tRECORDS\tAREA (ha)")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", r.Municipality, r.Records, r.TotalArea)
	}
	return tw.Flush()
}

// RenderGroups writes the consumption ranking as an aligned table.
func RenderGroups(w io.Writer, rows []GroupConsumption) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CROP GROUP\tRECORDS\tCONSUMPTION (m3)")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\n", r.Group, r.Records, r.Consumption)
	}
	return tw.Flush()
}

// RenderComarcas writes the per-comarca breakdown as an aligned table.
func RenderComarcas(w io.Writer, rows []ComarcaStat) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMARCA\tMUNICIPALITIES\tAREA (ha)\tMEAN ALLOCATION (m3/ha)")
	for _, r := range rows {
		fmt.Fprintf(tw, "%s\t%d\t%.2f\t%.2f\n", r.Comarca, r.Municipalities, r.TotalArea, r.MeanAllocation)
	}
	return tw.Flush()
}
