package buildinfo

import (
	"strings"
	"testing"
)

func TestTemplateMentionsVersion(t *testing.T) {
	old := Version
	Version = "v9.9.9"
	defer func() { Version = old }()

	if got := Template(); !strings.HasPrefix(got, "{{.Name}} version v9.9.9\n") {
		t.Errorf("Template() = %q", got)
	}
	if got := String(); !strings.Contains(got, "version: v9.9.9") {
		t.Errorf("String() = %q", got)
	}
}
