package restquery

import "strings"

// CompileProjection joins fields and then extra into a single space-delimited
// projection. An empty result means no projection.
func CompileProjection(fields, extra []string) string {
	all := make([]string, 0, len(fields)+len(extra))
	all = append(all, fields...)
	all = append(all, extra...)
	return strings.Join(all, " ")
}

// ProjectionFields splits a projection produced by CompileProjection into
// included and excluded ("-field") paths.
func ProjectionFields(projection string) (include, exclude []string) {
	for _, f := range strings.Fields(projection) {
		if strings.HasPrefix(f, "-") {
			if name := f[1:]; name != "" {
				exclude = append(exclude, name)
			}
			continue
		}
		include = append(include, f)
	}
	return include, exclude
}

// Project applies a projection to doc in memory. Included paths keep IDField
// as the store does; excluded paths are removed. Only the first path segment
// is considered.
func Project(doc Document, projection string) Document {
	include, exclude := ProjectionFields(projection)
	if len(include) == 0 && len(exclude) == 0 {
		return doc
	}
	out := make(Document, len(doc))
	if len(include) > 0 {
		if id, ok := doc[IDField]; ok {
			out[IDField] = id
		}
		for _, f := range include {
			top, _, _ := strings.Cut(f, ".")
			if v, ok := doc[top]; ok {
				out[top] = v
			}
		}
	} else {
		for k, v := range doc {
			out[k] = v
		}
	}
	for _, f := range exclude {
		top, _, _ := strings.Cut(f, ".")
		delete(out, top)
	}
	return out
}
