package util

import (
	"errors"
	"strings"
	"testing"
)

func TestTempIDs(t *testing.T) {
	a, b := NewTempID(), NewTempID()
	if a == b {
		t.Fatal("temp ids collide")
	}
	if !IsTempID(a) {
		t.Fatalf("IsTempID(%q) = false", a)
	}
	if IsTempID("temp_nope") || IsTempID("42") {
		t.Fatal("IsTempID accepted a non temp id")
	}
	if !strings.HasPrefix(NewOperationID(), OperationIDPrefix) {
		t.Fatal("operation id prefix missing")
	}
	if got := ShortID("01HZX5Q7ABCDEFGH"); got != "bcdefgh" {
		t.Fatalf("ShortID = %q", got)
	}
}

func TestErrorFormat(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := ConnectionError("http://localhost:5000", cause)

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error lost")
	}
	out := err.Format()
	for _, want := range []string{"Error: Cannot reach the invoice server", "http://localhost:5000", "Possible causes:", "Try:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("Format() missing %q:\n%s", want, out)
		}
	}

	if !errors.Is(RowNotFoundError("7"), ErrRowNotFound) {
		t.Fatal("RowNotFoundError should wrap ErrRowNotFound")
	}
}

func TestCellText(t *testing.T) {
	if got := CellText("Tiss\xe9"); got != "Tissé" {
		t.Fatalf("latin-1 = %q", got)
	}
	if got := CellText("red\tline\nnext\x07"); got != "red line next" {
		t.Fatalf("control chars = %q", got)
	}
	if got := CellText("plain"); got != "plain" {
		t.Fatalf("plain = %q", got)
	}
}
