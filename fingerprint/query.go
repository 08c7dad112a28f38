package fingerprint

// Query is a structured read request: statement text plus bound arguments.
// Two queries with the same text and equal arguments render identically,
// whatever order the Args map was built in.
type Query struct {
	Text string
	Args map[string]any
}

type queryForm struct {
	Text string         `cbor:"1,keyasint"`
	Args map[string]any `cbor:"2,keyasint,omitempty"`
}

// Canonical implements Renderer.
func (q Query) Canonical() ([]byte, error) {
	return canonical.Marshal(queryForm{Text: q.Text, Args: q.Args})
}

// Key is shorthand for Of(q).
func (q Query) Key() (Key, error) { return Of(q) }
