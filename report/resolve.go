package report

import "strings"

// Resolve looks up a dotted-path reference against the generation context.
// Three root forms exist:
//
//   - "bundle.<path>" walks map keys starting at the bundle's context map
//   - "ctx.<path>" walks starting at the full context, reaching prior
//     variable outputs and the bundle-derived aliases
//   - anything else is a direct key lookup of the whole reference string
//
// A missing key anywhere along the path yields nil, never an error; prompt
// templates must tolerate absent values.
func Resolve(ref string, c *Context) any {
	parts := strings.Split(ref, ".")

	switch parts[0] {
	case KeyBundle:
		if len(parts) == 1 {
			return c.values[KeyBundle]
		}
		return walk(c.values[KeyBundle], parts[1:])
	case "ctx":
		if len(parts) == 1 {
			return nil
		}
		return walk(c.values, parts[1:])
	default:
		return c.values[ref]
	}
}

// walk descends through nested string-keyed maps one segment at a time.
func walk(root any, path []string) any {
	current := root
	for _, segment := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[segment]
		if !ok {
			return nil
		}
	}
	return current
}

// BindName derives the short prompt-context name for an input reference:
// the second-to-last segment when the reference has more than two segments,
// else the last. "bundle.samples.main" binds as "samples" while
// "ctx.summary_md" binds as "summary_md".
func BindName(ref string) string {
	parts := strings.Split(ref, ".")
	if len(parts) > 2 {
		return parts[len(parts)-2]
	}
	return parts[len(parts)-1]
}
