package predicate

import "github.com/roach88/shopfloor/internal/queryir"

// Key is one name=value pair of an entity key, value in literal syntax
// ("42", "'P-100'").
type Key struct {
	Name string
	Text string
}

// KeyExpression builds the equality chain for keys,
// ((k1 eq v1 and k2 eq v2) and k3 eq v3), in the order given.
func KeyExpression(keys []Key) (queryir.Node, error) {
	if len(keys) == 0 {
		return nil, &CompileError{Message: "key lookup needs at least one key", Err: ErrEmptyKeySet}
	}

	var expr queryir.Node
	for _, k := range keys {
		eq := queryir.Eq(queryir.Field(k.Name), queryir.Lit(k.Text))
		if expr == nil {
			expr = eq
			continue
		}
		expr = queryir.And(expr, eq)
	}
	return expr, nil
}

// KeyPredicate compiles keys into one AND-chained equality predicate.
// Single and composite keys take the same path through Compile.
func KeyPredicate(keys []Key) (Predicate, error) {
	expr, err := KeyExpression(keys)
	if err != nil {
		return nil, err
	}
	return Compile(expr)
}
