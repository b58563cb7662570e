package main

import (
	"testing"
)

func TestRootCommandRejectsArguments(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"extra"})
	if err := cmd.Execute(); err == nil {
		t.Fatalf("expected error for positional argument")
	}
}

func TestRootCommandDeclaresOnceFlag(t *testing.T) {
	cmd := newRootCommand()
	flag := cmd.Flags().Lookup("once")
	if flag == nil {
		t.Fatalf("expected --once flag")
	}
	if flag.DefValue != "false" {
		t.Fatalf("--once default = %q", flag.DefValue)
	}
}
