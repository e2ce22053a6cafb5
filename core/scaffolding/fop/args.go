package fop

// Shape controls which fields and relations a result carries. Select and
// Omit are exclusive, as are Select and Include. Select may name relations,
// which are then loaded with default arguments.
type Shape struct {
	Select []string
	// SelectArgs shapes relations named in Select.
	SelectArgs map[string]*FindArgs
	Omit       []string
	Include    []Include
	// Count loads the number of related rows per named relation into _count.
	Count []string
}

// Empty reports whether the shape changes nothing.
func (s Shape) Empty() bool {
	return len(s.Select) == 0 && len(s.Omit) == 0 && len(s.Include) == 0 && len(s.Count) == 0
}

// Include eagerly loads a relation. Args is optional; for to-one relations
// only its Shape applies.
type Include struct {
	Relation string
	Args     *FindArgs
}

// With includes relation, optionally shaped by args.
func With(relation string, args ...FindArgs) Include {
	inc := Include{Relation: relation}
	if len(args) > 0 {
		a := args[0]
		inc.Args = &a
	}
	return inc
}

// FindArgs are the arguments of find-many style reads.
type FindArgs struct {
	Where   Predicate
	OrderBy []Order
	// Cursor holds unique criteria naming the row the page starts at. The
	// cursor row is part of the page unless Skip passes over it.
	Cursor map[string]any
	// Take limits the result. A negative Take pages backwards from the
	// cursor; results keep the requested order.
	Take     *int
	Skip     int
	Distinct []string
	Shape
}

// Take returns a pointer to n, for FindArgs.Take.
func Take(n int) *int {
	return &n
}
