package wiki

import (
	"context"
	"fmt"
)

// VisitFunc is called for each result of an iteration. value is the
// requested attribute, or "" when no attribute was asked for. Returning
// false stops the iteration.
type VisitFunc func(el *Element, value string) bool

// Iterate runs a list query and follows query-continue until the wiki has no
// more results or visit returns false.
//
// item is the name of the result elements under query/<list>, attr the
// attribute passed to visit, and continueParam the request parameter that
// receives the continuation value (e.g. "apfrom").
func (g *Gateway) Iterate(ctx context.Context, list, item, attr, continueParam string, params *Params, visit VisitFunc) error {
	p := params.Clone()
	p.Set("action", "query")
	p.Set("list", list)
	sel := continueFor(list, continueParam)

	for {
		doc, cont, err := g.makeAPIRequest(ctx, p, sel)
		if err != nil {
			return fmt.Errorf("failed to list %s: %w", list, err)
		}
		for _, el := range doc.Path("query/" + list).FindAll(item) {
			value := ""
			if attr != "" {
				value = el.AttrValue(attr)
			}
			if !visit(el, value) {
				return nil
			}
		}
		if cont == "" {
			return nil
		}
		p.Set(continueParam, cont)
	}
}

// collect is Iterate gathering the attr of every result.
func (g *Gateway) collect(ctx context.Context, list, item, attr, continueParam string, params *Params) ([]string, error) {
	var out []string
	err := g.Iterate(ctx, list, item, attr, continueParam, params, func(_ *Element, v string) bool {
		out = append(out, v)
		return true
	})
	return out, err
}
