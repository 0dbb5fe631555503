package logwatch

import "testing"

func TestClassifyMatchesSessionFailurePatterns(t *testing.T) {
	cases := []string{
		"ERROR: invalid session detected",
		"warn: Session  Invalid, reconnect required",
		"client logged out unexpectedly",
		"client loggedout",
		"request rejected: 401 Unauthorized",
	}
	for _, line := range cases {
		if _, ok := Classify(line); !ok {
			t.Errorf("expected match for %q", line)
		}
	}
}

func TestClassifyIgnoresNormalLines(t *testing.T) {
	cases := []string{
		"session established",
		"build succeeded in 42s",
		"GET /health 200",
		"user logged in",
		"",
	}
	for _, line := range cases {
		if ev, ok := Classify(line); ok {
			t.Errorf("unexpected match for %q: %+v", line, ev)
		}
	}
}

func TestClassifyExtractsForIdentifier(t *testing.T) {
	ev, ok := Classify("Invalid session for 919876543210. Shutting down")
	if !ok {
		t.Fatal("expected match")
	}
	if ev.Identifier != "919876543210" {
		t.Fatalf("expected identifier 919876543210, got %q", ev.Identifier)
	}
}

func TestClassifyExtractsBracketIdentifierBeforeInvalid(t *testing.T) {
	ev, ok := Classify("[worker-3] [demo-bot-1] session invalid, closing")
	if !ok {
		t.Fatal("expected match")
	}
	if ev.Identifier != "demo-bot-1" {
		t.Fatalf("expected the last bracket before the keyword, got %q", ev.Identifier)
	}
}

func TestClassifyForIdentifierWinsOverBrackets(t *testing.T) {
	ev, ok := Classify("[demo-bot-1] invalid session for user42. bye")
	if !ok {
		t.Fatal("expected match")
	}
	if ev.Identifier != "user42" {
		t.Fatalf("expected the for-identifier, got %q", ev.Identifier)
	}
}

func TestClassifyNoIdentifierIsEmpty(t *testing.T) {
	ev, ok := Classify("invalid session")
	if !ok {
		t.Fatal("expected match")
	}
	if ev.Identifier != "" {
		t.Fatalf("expected empty identifier, got %q", ev.Identifier)
	}
}

func TestClassifyIgnoresBracketsAfterKeyword(t *testing.T) {
	ev, ok := Classify("invalid session [after-the-fact]")
	if !ok {
		t.Fatal("expected match")
	}
	if ev.Identifier != "" {
		t.Fatalf("brackets after the keyword must not count, got %q", ev.Identifier)
	}
}
