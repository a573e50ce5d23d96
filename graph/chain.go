package graph

// BuildChains emits one [source, relation, target] chain per relation whose
// source is an entity, walking entities in order and each entity's
// relations in their original order.
func BuildChains(entities []Entity, relations []Relation) []Chain {
	bySource := make(map[string][]Relation)
	for _, r := range relations {
		bySource[r.Source] = append(bySource[r.Source], r)
	}

	chains := []Chain{}
	for _, e := range entities {
		for _, r := range bySource[e.Text] {
			chains = append(chains, Chain{r.Source, r.Relation, r.Target})
		}
	}
	return chains
}
