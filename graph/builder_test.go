package graph

import (
	"strings"
	"testing"

	"github.com/jcm204/APD-Proyecto-Agua-Cultivos/ingest"
)

func sampleRow() ingest.Row {
	return ingest.Row{
		Province:     "VALENCIA",
		Comarca:      "Horta Nord",
		Municipality: "L'Horta",
		CropGroup:    "Cítricos",
		Crop:         "Naranjo",
		Area:         "10,5",
		Allocation:   "1200,0",
		Consumption:  "12600,0",
		Cost:         "5000,0",
		Line:         1,
	}
}

// value follows record -> link -> measurement -> schema:value.
func measurementValue(t *testing.T, g *Store, record, link, path string) float64 {
	t.Helper()
	m := record + "/" + path
	if !g.Has(record, link, IRI(m)) {
		t.Fatalf("record %s is not linked to %s via %s", record, m, link)
	}
	obj, ok := g.Object(m, SchemaValue)
	if !ok {
		t.Fatalf("measurement %s has no value", m)
	}
	v, ok := obj.Float()
	if !ok {
		t.Fatalf("measurement %s value %q is not numeric", m, obj.Value)
	}
	if obj.Datatype != XSDDecimal {
		t.Errorf("measurement %s datatype = %q, want xsd:decimal", m, obj.Datatype)
	}
	return v
}

func TestBuilderSingleRow(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)
	if err := b.AddRow(sampleRow()); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	prov := NS + "provincia/valencia"
	com := NS + "comarca/horta_nord"
	muni := NS + "municipio/lhorta"
	crop := NS + "cultivo/lhorta/citricos_naranjo"
	reg := NS + "registro/1"

	// ---- hierarchy ----

	for uri, kind := range map[string]string{prov: "provincia", com: "comarca", muni: "municipio"} {
		if !g.Has(uri, RDFType, IRI(SchemaPlace)) {
			t.Errorf("%s is not typed as Place", uri)
		}
		if !g.Has(uri, SchemaAdditionalType, Text(kind, "es")) {
			t.Errorf("%s is missing additionalType %q", uri, kind)
		}
	}
	if !g.Has(muni, SchemaName, Text("L'Horta", "es")) {
		t.Error("municipality keeps its raw spelling as name")
	}
	if !g.Has(muni, SchemaContainedInPlace, IRI(com)) {
		t.Error("municipality not contained in comarca")
	}
	if !g.Has(com, SchemaContainedInPlace, IRI(prov)) {
		t.Error("comarca not contained in provincia")
	}
	if objs := g.Objects(prov, SchemaContainedInPlace); objs != nil {
		t.Errorf("provincia should have no parent, got %v", objs)
	}

	// ---- catalog ----

	if !g.Has(crop, RDFType, IRI(SchemaProduct)) {
		t.Error("crop is not typed as Product")
	}
	if !g.Has(crop, SchemaCategory, Text("Cítricos", "es")) {
		t.Error("crop is missing its group as category")
	}
	if !g.Has(crop, SchemaLocation, IRI(muni)) {
		t.Error("crop is not located in its municipality")
	}

	// ---- record and measurements ----

	if !g.Has(reg, RDFType, IRI(SchemaEvent)) {
		t.Error("record is not typed as Event")
	}
	if !g.Has(reg, SchemaName, Text("Cultivo de Naranjo en L'Horta", "es")) {
		t.Error("record name not built from raw crop and municipality")
	}
	if !g.Has(reg, SchemaAbout, IRI(crop)) {
		t.Error("record is not about its crop")
	}

	if v := measurementValue(t, g, reg, SchemaArea, "superficie"); v != 10.5 {
		t.Errorf("superficie = %v, want 10.5", v)
	}
	if v := measurementValue(t, g, reg, SchemaAdditionalProperty, "dotacion"); v != 1200.0 {
		t.Errorf("dotacion = %v, want 1200.0", v)
	}
	if v := measurementValue(t, g, reg, SchemaAdditionalProperty, "consumo"); v != 12600.0 {
		t.Errorf("consumo = %v, want 12600.0", v)
	}
	if v := measurementValue(t, g, reg, SchemaAdditionalProperty, "coste"); v != 5000.0 {
		t.Errorf("coste = %v, want 5000.0", v)
	}
	if !g.Has(reg+"/coste", RDFType, IRI(SchemaMonetaryAmount)) {
		t.Error("cost is not typed as MonetaryAmount")
	}
	if !g.Has(reg+"/coste", SchemaCurrency, Literal("EUR")) {
		t.Error("cost is missing its currency")
	}
	if !g.Has(reg+"/superficie", SchemaUnitCode, Literal("HEC")) {
		t.Error("superficie is missing unit HEC")
	}
	if !g.Has(reg+"/consumo", SchemaUnitCode, Literal("MTQ")) {
		t.Error("consumo is missing unit MTQ")
	}

	stats := b.Stats()
	if stats.Places != 3 || stats.Crops != 1 || stats.Records != 1 {
		t.Errorf("stats = %+v, want 3 places, 1 crop, 1 record", stats)
	}
}

func TestBuilderDeduplicatesPlaces(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)

	r1 := sampleRow()
	r2 := sampleRow()
	r2.Municipality = "l'horta" // spelling variant, same identifier
	r2.Line = 2
	if err := b.AddRow(r1); err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if err := b.AddRow(r2); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	munis := g.SubjectsWith(SchemaAdditionalType, Text("municipio", "es"))
	if len(munis) != 1 {
		t.Fatalf("got %d municipalities, want 1", len(munis))
	}
	// First spelling wins; the variant adds no second name.
	if names := g.Objects(munis[0], SchemaName); len(names) != 1 || names[0].Value != "L'Horta" {
		t.Errorf("names = %v, want the first spelling only", names)
	}
	if stats := b.Stats(); stats.Places != 3 || stats.Records != 2 {
		t.Errorf("stats = %+v, want 3 places and 2 records", stats)
	}
}

func TestBuilderFirstParentWins(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)

	r1 := sampleRow()
	r2 := sampleRow()
	r2.Comarca = "Horta Sud" // same municipality claims another comarca
	r2.Line = 2
	if err := b.AddRow(r1); err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if err := b.AddRow(r2); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	muni := NS + "municipio/lhorta"
	parents := g.Objects(muni, SchemaContainedInPlace)
	if len(parents) != 1 {
		t.Fatalf("got %d parents, want exactly 1", len(parents))
	}
	if want := NS + "comarca/horta_nord"; parents[0].Value != want {
		t.Errorf("parent = %q, want first-seen %q", parents[0].Value, want)
	}
	if stats := b.Stats(); stats.ParentConflicts != 1 {
		t.Errorf("ParentConflicts = %d, want 1", stats.ParentConflicts)
	}
}

func TestBuilderSkipsBadRows(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)

	good := sampleRow()
	bad := sampleRow()
	bad.Area = "diez" // not a number
	bad.Line = 2
	alsoGood := sampleRow()
	alsoGood.Municipality = "Alboraya"
	alsoGood.Line = 3

	if err := b.AddRow(good); err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if err := b.AddRow(bad); err == nil {
		t.Fatal("bad numeric row should be rejected")
	}
	if err := b.AddRow(alsoGood); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	// Rejected rows leave gaps in record numbering.
	if got := g.BySubject(NS + "registro/2"); got != nil {
		t.Errorf("registro/2 should not exist, got %v", got)
	}
	if got := g.BySubject(NS + "registro/3"); len(got) == 0 {
		t.Error("registro/3 should exist")
	}

	stats := b.Stats()
	if stats.RowsProcessed != 2 || stats.RowsSkipped != 1 {
		t.Errorf("stats = %+v, want 2 processed and 1 skipped", stats)
	}
}

func TestBuilderResume(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)
	b.Resume(7)

	if err := b.AddRow(sampleRow()); err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if got := g.BySubject(NS + "registro/8"); len(got) == 0 {
		t.Error("record after Resume(7) should be registro/8")
	}

	// Resume never moves numbering backwards.
	b.Resume(2)
	next := sampleRow()
	next.Municipality = "Alboraya"
	if err := b.AddRow(next); err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if got := g.BySubject(NS + "registro/9"); len(got) == 0 {
		t.Error("record after Resume(2) should still be registro/9")
	}
}

func TestBuilderRejectsBlankNames(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ingest.Row)
	}{
		{"blank province", func(r *ingest.Row) { r.Province = "  " }},
		{"blank comarca", func(r *ingest.Row) { r.Comarca = "" }},
		{"blank municipality", func(r *ingest.Row) { r.Municipality = "" }},
		{"blank group", func(r *ingest.Row) { r.CropGroup = "" }},
		{"blank crop", func(r *ingest.Row) { r.Crop = "" }},
		{"unusable comarca", func(r *ingest.Row) { r.Comarca = "***" }},
		{"unusable crop", func(r *ingest.Row) { r.Crop = "¿?" }},
		{"empty area", func(r *ingest.Row) { r.Area = "" }},
		{"infinite consumption", func(r *ingest.Row) { r.Consumption = "inf" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewStore()
			b := NewBuilder(g)
			row := sampleRow()
			tt.mutate(&row)
			if err := b.AddRow(row); err == nil {
				t.Error("row should be rejected")
			}
			if g.Len() != 0 {
				t.Errorf("rejected row wrote %d facts", g.Len())
			}
		})
	}
}

func TestBuilderCountsNegatives(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)

	row := sampleRow()
	row.Area = "-3,5"
	row.Cost = "-100,0"
	if err := b.AddRow(row); err != nil {
		t.Fatalf("negative values must be kept, got: %v", err)
	}

	stats := b.Stats()
	if stats.NegativeValues != 2 {
		t.Errorf("NegativeValues = %d, want 2", stats.NegativeValues)
	}
	if obj, _ := g.Object(NS+"registro/1/superficie", SchemaValue); !strings.HasPrefix(obj.Value, "-") {
		t.Errorf("negative value not preserved: %q", obj.Value)
	}
}

func TestBuilderCropScopedPerPlace(t *testing.T) {
	g := NewStore()
	b := NewBuilder(g)

	r1 := sampleRow()
	r2 := sampleRow()
	r2.Municipality = "Alboraya"
	r2.Line = 2
	if err := b.AddRow(r1); err != nil {
		t.Fatalf("AddRow: %v", err)
	}
	if err := b.AddRow(r2); err != nil {
		t.Fatalf("AddRow: %v", err)
	}

	crops := g.SubjectsWith(RDFType, IRI(SchemaProduct))
	if len(crops) != 2 {
		t.Fatalf("got %d crop entities, want one per municipality", len(crops))
	}
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"10,5", 10.5, false},
		{"1200,0", 1200.0, false},
		{" 7 ", 7.0, false},
		{"-3,25", -3.25, false},
		{"10.5", 10.5, false}, // already dotted
		{"", 0, true},
		{"n/a", 0, true},
		{"inf", 0, true},
		{"NaN", 0, true},
	}
	for _, tt := range tests {
		got, err := parseDecimal(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("parseDecimal(%q) should fail", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseDecimal(%q): %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseDecimal(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
