package operation

import "testing"

func TestSentinelIdentity(t *testing.T) {
	src := NewSource()
	if src.Shortname() != "Source" {
		t.Errorf("Source.Shortname() = %q, want %q", src.Shortname(), "Source")
	}
	if !src.Hidden() {
		t.Error("expected Source to be Hidden")
	}

	sink := NewSink("build/font.ttf")
	want := "Sink(build/font.ttf)"
	if sink.Shortname() != want {
		t.Errorf("Sink.Shortname() = %q, want %q", sink.Shortname(), want)
	}
}

func TestSentinelExecuteIsNoop(t *testing.T) {
	src := NewSource()
	result, err := src.Execute(nil, nil, nil)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !result.Success() {
		t.Errorf("expected sentinel Execute to always succeed, got exit %d", result.ExitCode)
	}
}
