package es

import "testing"

func TestTagFilterQueryExact(t *testing.T) {
	q, err := TagFilterQuery("channel_tags", "science")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q["term"]; !ok {
		t.Fatalf("exact pattern must build a term query, got %v", q)
	}
}

func TestTagFilterQueryTrailingWildcard(t *testing.T) {
	q, err := TagFilterQuery("channel_tags", "sci*")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := q["wildcard"]; !ok {
		t.Fatalf("trailing * must build a wildcard query, got %v", q)
	}
}

func TestTagFilterQueryRejected(t *testing.T) {
	for _, pattern := range []string{
		"",
		"*",
		"*sci",
		"s*i",
		"sci**",
		"sc?ence",
	} {
		if _, err := TagFilterQuery("channel_tags", pattern); err == nil {
			t.Errorf("pattern %q accepted, want rejection", pattern)
		}
	}
}
