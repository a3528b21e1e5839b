package graph

import (
	"fmt"
	"sync"
	"testing"
)

func TestStoreSetSemantics(t *testing.T) {
	g := NewStore()

	if !g.Add("s", SchemaName, Text("Alboraya", "es")) {
		t.Error("first Add should report a new fact")
	}
	if g.Add("s", SchemaName, Text("Alboraya", "es")) {
		t.Error("duplicate Add should report an existing fact")
	}
	if g.Len() != 1 {
		t.Errorf("Len = %d, want 1", g.Len())
	}

	// Same value, different term shape: distinct facts.
	g.Add("s", SchemaName, Literal("Alboraya"))
	g.Add("s", SchemaName, Text("Alboraya", "ca"))
	if g.Len() != 3 {
		t.Errorf("Len = %d, want 3 distinct facts", g.Len())
	}
}

func TestStoreBySubject(t *testing.T) {
	g := NewStore()
	g.Add("a", RDFType, IRI(SchemaPlace))
	g.Add("b", RDFType, IRI(SchemaProduct))
	g.Add("a", SchemaName, Text("Alzira", "es"))

	facts := g.BySubject("a")
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want 2", len(facts))
	}
	if facts[0].Predicate != RDFType || facts[1].Predicate != SchemaName {
		t.Error("BySubject should keep insertion order")
	}
	if got := g.BySubject("missing"); got != nil {
		t.Errorf("BySubject(missing) = %v, want nil", got)
	}
}

func TestStoreSubjectsWith(t *testing.T) {
	g := NewStore()
	g.Add("m1", SchemaAdditionalType, Text("municipio", "es"))
	g.Add("m2", SchemaAdditionalType, Text("municipio", "es"))
	g.Add("c1", SchemaAdditionalType, Text("comarca", "es"))

	subs := g.SubjectsWith(SchemaAdditionalType, Text("municipio", "es"))
	if len(subs) != 2 {
		t.Fatalf("got %d subjects, want 2", len(subs))
	}
	for _, s := range subs {
		if s != "m1" && s != "m2" {
			t.Errorf("unexpected subject %q", s)
		}
	}
	if subs := g.SubjectsWith(SchemaAdditionalType, Text("municipio", "ca")); subs != nil {
		t.Errorf("language tag should distinguish objects, got %v", subs)
	}
}

func TestStoreObjects(t *testing.T) {
	g := NewStore()
	g.Add("r", SchemaAdditionalProperty, IRI("r/dotacion"))
	g.Add("r", SchemaAdditionalProperty, IRI("r/consumo"))
	g.Add("r", SchemaArea, IRI("r/superficie"))

	objs := g.Objects("r", SchemaAdditionalProperty)
	if len(objs) != 2 {
		t.Fatalf("got %d objects, want 2", len(objs))
	}
	if objs[0].Value != "r/dotacion" || objs[1].Value != "r/consumo" {
		t.Error("Objects should keep insertion order")
	}

	if first, ok := g.Object("r", SchemaArea); !ok || first.Value != "r/superficie" {
		t.Errorf("Object = %v, %v", first, ok)
	}
	if _, ok := g.Object("r", SchemaName); ok {
		t.Error("Object on absent predicate should report false")
	}
}

func TestStoreConcurrentAdd(t *testing.T) {
	g := NewStore()
	const workers, perWorker = 4, 100

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				g.Add(fmt.Sprintf("s%d-%d", w, i), SchemaName, Text("n", "es"))
			}
		}(w)
	}
	wg.Wait()

	if g.Len() != workers*perWorker {
		t.Errorf("Len = %d, want %d", g.Len(), workers*perWorker)
	}
}

func TestTermFloat(t *testing.T) {
	if v, ok := Decimal(10.5).Float(); !ok || v != 10.5 {
		t.Errorf("Decimal(10.5).Float() = %v, %v", v, ok)
	}
	if _, ok := IRI("x").Float(); ok {
		t.Error("IRI should not parse as float")
	}
	if _, ok := Text("naranjo", "es").Float(); ok {
		t.Error("non-numeric literal should not parse as float")
	}
}
