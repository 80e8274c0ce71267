package tokenizer

import (
	"reflect"
	"testing"
)

func TestTokenize_PathSplitAndCamelCase(t *testing.T) {
	tokens := Tokenize("api.example.com", "/api/getUserProfile", "")
	want := []string{"h:api.example.com", "api", "get", "user", "profile"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("got %v, want %v", tokens, want)
	}
}

func TestTokenize_NumericSentinel(t *testing.T) {
	tokens := Tokenize("example.com", "/users/1234567890", "")
	for _, tok := range tokens {
		if tok == "1234567890" {
			t.Fatalf("long numeric segment should be replaced by sentinel, got raw token in %v", tokens)
		}
	}
	found := false
	for _, tok := range tokens {
		if tok == numSentinel {
			found = true
		}
	}
	if !found {
		t.Errorf("expected <num> sentinel in %v", tokens)
	}
}

func TestTokenize_ShortNumericKept(t *testing.T) {
	tokens := Tokenize("example.com", "/v1/items/42", "")
	found := false
	for _, tok := range tokens {
		if tok == "42" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected short numeric segment kept as-is, got %v", tokens)
	}
}

func TestTokenize_ExtensionExtraction(t *testing.T) {
	tokens := Tokenize("example.com", "/data/report.json", "")
	wantExt := "ext:json"
	found := false
	for _, tok := range tokens {
		if tok == wantExt {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q in %v", wantExt, tokens)
	}
	for _, tok := range tokens {
		if tok == "report.json" {
			t.Errorf("extension should be split out, got raw segment in %v", tokens)
		}
	}
}

func TestTokenize_QueryKeysOnlyNoValues(t *testing.T) {
	tokens := Tokenize("example.com", "/search", "q=weather+report&session=abc123")
	wantQ := "q:q"
	wantSession := "q:session"
	hasQ, hasSession := false, false
	for _, tok := range tokens {
		if tok == wantQ {
			hasQ = true
		}
		if tok == wantSession {
			hasSession = true
		}
		if tok == "weather" || tok == "abc123" {
			t.Errorf("query values must be discarded, found %q in %v", tok, tokens)
		}
	}
	if !hasQ || !hasSession {
		t.Errorf("expected query key tokens %q and %q in %v", wantQ, wantSession, tokens)
	}
}

func TestTokenize_Idempotent(t *testing.T) {
	first := Tokenize("Example.COM", "/Api/GetUser/99", "x=1&y=2")
	second := Tokenize("Example.COM", "/Api/GetUser/99", "x=1&y=2")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("tokenization is not deterministic: %v vs %v", first, second)
	}
}

func TestTokenize_EmptyPathAndQuery(t *testing.T) {
	tokens := Tokenize("example.com", "", "")
	want := []string{"h:example.com"}
	if !reflect.DeepEqual(tokens, want) {
		t.Errorf("got %v, want %v", tokens, want)
	}
}

func TestDedup(t *testing.T) {
	in := []string{"a", "b", "a", "c", "b"}
	want := []string{"a", "b", "c"}
	got := Dedup(in)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}
