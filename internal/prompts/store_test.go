package prompts

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestStoreHasBuiltins(t *testing.T) {
	s := NewStore(zap.NewNop())
	for _, name := range []string{
		TplConversationAuditor,
		TplConversationAnalyst,
		TplListingAuditor,
		TplListingAnalyst,
		TplReviewGatekeeper,
		TplReviewPositive,
		TplReviewNegative,
		TplListingGapAnalyst,
		TplStrategySynthesis,
	} {
		if _, err := s.Get(name); err != nil {
			t.Fatalf("builtin %q missing: %v", name, err)
		}
	}
}

func TestStoreGetUnknown(t *testing.T) {
	s := NewStore(zap.NewNop())
	if _, err := s.Get("no_such_template"); err == nil {
		t.Fatalf("expected error for unknown template")
	}
}

func TestStoreLoadDirectoryOverride(t *testing.T) {
	dir := t.TempDir()
	yaml := `name: conversation_auditor
required_tokens: [PART1_CONTEXT]
body: |
  Custom auditor prompt over __PART1_CONTEXT__.
`
	if err := os.WriteFile(filepath.Join(dir, "auditor.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write template: %v", err)
	}

	s := NewStore(zap.NewNop())
	if err := s.LoadDirectory(dir); err != nil {
		t.Fatalf("LoadDirectory: %v", err)
	}
	tpl, err := s.Get(TplConversationAuditor)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if tpl.Body == "" || tpl.Body[:6] != "Custom" {
		t.Fatalf("override not applied: %q", tpl.Body)
	}
}

func TestStoreLoadDirectoryCollectsFailures(t *testing.T) {
	dir := t.TempDir()
	bad := `name: broken
required_tokens: [MISSING]
body: no marker here
`
	good := `name: extra
body: standalone prompt
`
	if err := os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte(bad), 0o600); err != nil {
		t.Fatalf("write bad: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "good.yaml"), []byte(good), 0o600); err != nil {
		t.Fatalf("write good: %v", err)
	}

	s := NewStore(zap.NewNop())
	err := s.LoadDirectory(dir)
	if err == nil {
		t.Fatalf("expected load error")
	}
	if !IsLoadError(err) {
		t.Fatalf("expected LoadError, got %T", err)
	}
	// The good template still loaded.
	if _, err := s.Get("extra"); err != nil {
		t.Fatalf("good template not loaded: %v", err)
	}
}
