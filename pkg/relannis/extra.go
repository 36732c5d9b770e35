package relannis

import (
	"os"
	"strconv"
	"strings"
)

// parseResolverVisMap reads the optional resolver_vis_map table into a
// flat list of ResolverEntry rules, per load_resolver_vis_map minus its
// default-visualizer-set merging: corpusstorage owns deciding how an
// imported corpus's rules combine with any built-in defaults, since that
// policy belongs to the façade, not the importer.
func parseResolverVisMap(dir string, is33 bool) ([]ResolverEntry, error) {
	path := tablePath(dir, "resolver_vis_map", is33)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	r, closeFn, err := openTSV(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var out []ResolverEntry
	err = wrapEOF(r.forEach(func(row tsvRow) error {
		entry := ResolverEntry{Mappings: make(map[string]string)}
		if v := row.get(2); v != nil {
			entry.Namespace = *v
		}
		if v := row.get(3); v != nil {
			entry.Element = *v
		}
		if v := row.get(4); v != nil {
			entry.VisType = *v
		}
		if v := row.get(5); v != nil {
			entry.DisplayName = *v
		}
		if v := row.get(6); v != nil {
			entry.Visibility = *v
		}
		if v := row.get(7); v != nil {
			if order, err := strconv.ParseInt(*v, 10, 64); err == nil {
				entry.Order = int(order)
			}
		}
		if v := row.get(8); v != nil {
			for _, kv := range strings.Split(*v, ";") {
				parts := strings.SplitN(kv, ":", 2)
				if len(parts) == 2 {
					entry.Mappings[parts[0]] = parts[1]
				}
			}
		}
		out = append(out, entry)
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// parseExampleQueries reads the optional example_queries table, per
// load_example_queries.
func parseExampleQueries(dir string, is33 bool) ([]ExampleQuery, error) {
	path := tablePath(dir, "example_queries", is33)
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}

	r, closeFn, err := openTSV(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	var out []ExampleQuery
	err = wrapEOF(r.forEach(func(row tsvRow) error {
		query := row.get(0)
		description := row.get(1)
		if query == nil || description == nil {
			return nil
		}
		out = append(out, ExampleQuery{Query: *query, Description: *description})
		return nil
	}))
	if err != nil {
		return nil, err
	}
	return out, nil
}
