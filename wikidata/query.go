package wikidata

import (
	"fmt"
	"strings"
)

// The queries lean on the EntitySearch service for fuzzy label matching and
// then constrain the hit: places must transitively instantiate the place
// class and sit inside the region anchor, crops must instantiate one of the
// agricultural classes. LIMIT 1 keeps the best-ranked hit.

const placeQueryTmpl = `SELECT ?item ?itemLabel ?coord ?poblacion WHERE {
  SERVICE wikibase:mwapi {
      bd:serviceParam wikibase:api "EntitySearch" .
      bd:serviceParam wikibase:endpoint "www.wikidata.org" .
      bd:serviceParam mwapi:search "%s" .
      bd:serviceParam mwapi:language "%s" .
      ?item wikibase:apiOutputItem mwapi:item .
  }
  ?item wdt:P31/wdt:P279* wd:%s .
  ?item wdt:P131* wd:%s .
  OPTIONAL { ?item wdt:P625 ?coord }
  OPTIONAL { ?item wdt:P1082 ?poblacion }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "%s". }
}
LIMIT 1`

const cropQueryTmpl = `SELECT ?item ?itemLabel ?taxon WHERE {
  SERVICE wikibase:mwapi {
      bd:serviceParam wikibase:api "EntitySearch" .
      bd:serviceParam wikibase:endpoint "www.wikidata.org" .
      bd:serviceParam mwapi:search "%s" .
      bd:serviceParam mwapi:language "%s" .
      ?item wikibase:apiOutputItem mwapi:item .
  }
  ?item wdt:P31/wdt:P279* ?tipo .
  FILTER(?tipo IN (%s))
  OPTIONAL { ?item wdt:P225 ?taxon }
  SERVICE wikibase:label { bd:serviceParam wikibase:language "%s". }
}
LIMIT 1`

func (c *Client) placeQuery(label string) string {
	return fmt.Sprintf(placeQueryTmpl,
		escapeLabel(label), c.cfg.Language, c.cfg.PlaceClass, c.cfg.RegionAnchor, c.cfg.Language)
}

func (c *Client) cropQuery(label string) string {
	classes := make([]string, len(c.cfg.CropClasses))
	for i, q := range c.cfg.CropClasses {
		classes[i] = "wd:" + q
	}
	return fmt.Sprintf(cropQueryTmpl,
		escapeLabel(label), c.cfg.Language, strings.Join(classes, ", "), c.cfg.Language)
}

// escapeLabel makes a label safe inside a double-quoted SPARQL string.
func escapeLabel(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}
