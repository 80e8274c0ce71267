package embedding

import (
	"github.com/conversem/server-side-query-fan-out-session-reporting/request"
	"github.com/conversem/server-side-query-fan-out-session-reporting/tokenizer"
)

// RequestIndex maps a request ID to its row in a Matrix built from the
// same ordered request slice (spec §3: "rows are addressable by
// request index within a single optimization pass").
type RequestIndex map[string]int

// BuildDocs tokenizes requests in order and returns both the
// token-sequence documents (ready for Embedder.Embed) and the
// RequestIndex mapping each request's ID to its row.
func BuildDocs(requests []request.Request, tok tokenizer.Tokenizer) (docs [][]string, index RequestIndex) {
	docs = make([][]string, len(requests))
	index = make(RequestIndex, len(requests))
	for i, r := range requests {
		docs[i] = tok.Tokenize(r)
		index[r.ID] = i
	}
	return docs, index
}
