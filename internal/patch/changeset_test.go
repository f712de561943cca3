package patch

import (
	"reflect"
	"testing"

	"github.com/prforge/prforge/internal/lang"
)

const samplePatch = `diff --git a/internal/auth/login.go b/internal/auth/login.go
index 0000000000000000000000000000000000000000..1111111111111111111111111111111111111111 100644
--- a/internal/auth/login.go
+++ b/internal/auth/login.go
@@ -1,3 +1,4 @@
 package auth
+// changed
diff --git a/internal/auth/login_test.go b/internal/auth/login_test.go
index 2222222222222222222222222222222222222222..3333333333333333333333333333333333333333 100644
--- a/internal/auth/login_test.go
+++ b/internal/auth/login_test.go
@@ -1,3 +1,4 @@
 package auth
+// changed
diff --git a/docs/notes.md b/docs/notes.md
index 4444444444444444444444444444444444444444..5555555555555555555555555555555555555555 100644
--- a/docs/notes.md
+++ b/docs/notes.md
@@ -1 +1,2 @@
 notes
+more
`

const deletionPatch = `diff --git a/internal/auth/old.go b/internal/auth/old.go
deleted file mode 100644
index 6666666666666666666666666666666666666666..0000000000000000000000000000000000000000
--- a/internal/auth/old.go
+++ /dev/null
@@ -1,1 +0,0 @@
-package auth
`

func mustLang(t *testing.T, name string) lang.Language {
	t.Helper()
	l, ok := lang.Lookup(name)
	if !ok {
		t.Fatalf("unknown language %s", name)
	}
	return l
}

func TestParseChangeSetPartition(t *testing.T) {
	cs, err := ParseChangeSet(samplePatch, mustLang(t, "go"))
	if err != nil {
		t.Fatalf("ParseChangeSet: %v", err)
	}
	wantFiles := []string{"internal/auth/login.go", "internal/auth/login_test.go", "docs/notes.md"}
	if !reflect.DeepEqual(cs.Files, wantFiles) {
		t.Errorf("Files = %v, want %v", cs.Files, wantFiles)
	}
	if !reflect.DeepEqual(cs.TestFiles, []string{"internal/auth/login_test.go"}) {
		t.Errorf("TestFiles = %v", cs.TestFiles)
	}
	if !reflect.DeepEqual(cs.SourceFiles, []string{"internal/auth/login.go", "docs/notes.md"}) {
		t.Errorf("SourceFiles = %v", cs.SourceFiles)
	}
}

func TestParseChangeSetDeletion(t *testing.T) {
	cs, err := ParseChangeSet(deletionPatch, mustLang(t, "go"))
	if err != nil {
		t.Fatalf("ParseChangeSet: %v", err)
	}
	if !reflect.DeepEqual(cs.Files, []string{"internal/auth/old.go"}) {
		t.Errorf("Files = %v, want the deleted file's original path", cs.Files)
	}
}

func TestParseChangeSetEmpty(t *testing.T) {
	cs, err := ParseChangeSet("", mustLang(t, "go"))
	if err != nil {
		t.Fatalf("ParseChangeSet: %v", err)
	}
	if !cs.Empty() {
		t.Errorf("Empty() = false for empty patch, ChangeSet = %+v", cs)
	}

	cs, err = ParseChangeSet("   \n\t", mustLang(t, "go"))
	if err != nil {
		t.Fatalf("ParseChangeSet whitespace: %v", err)
	}
	if !cs.Empty() {
		t.Error("Empty() = false for whitespace patch")
	}
}

func TestParseChangeSetGarbage(t *testing.T) {
	cs, err := ParseChangeSet("this is not a diff", mustLang(t, "go"))
	if err == nil && !cs.Empty() {
		t.Errorf("non-diff input produced files: %+v", cs)
	}
}
