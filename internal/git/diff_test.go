package git

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alamshoaib134/git-secret-scanner/models"
)

const sampleDiff = `
diff --git a/config/settings.py b/config/settings.py
new file mode 100644
index 0000000..e69de29
--- /dev/null
+++ b/config/settings.py
@@ -0,0 +1,3 @@
+DEBUG = True
+AWS_KEY = "AKIA1234567890123456"
+
diff --git a/app.js b/app.js
index 1111111..2222222 100644
--- a/app.js
+++ b/app.js
@@ -10,4 +10,5 @@ function init() {
 const a = 1;
-const token = "old";
+const token = "new";
 const b = 2;
+const c = 3;
@@ -40,2 +41,3 @@
 x();
+y();
`

func TestParseDiffAddedLines(t *testing.T) {
	got := slices.Collect(ParseDiff(sampleDiff))

	want := []models.DiffLine{
		{File: "config/settings.py", Line: 1, Content: "DEBUG = True"},
		{File: "config/settings.py", Line: 2, Content: `AWS_KEY = "AKIA1234567890123456"`},
		{File: "config/settings.py", Line: 3, Content: ""},
		{File: "app.js", Line: 11, Content: `const token = "new";`},
		{File: "app.js", Line: 13, Content: "const c = 3;"},
		{File: "app.js", Line: 42, Content: "y();"},
	}
	assert.Equal(t, want, got)
}

func TestParseDiffLineNumbersPositiveAndIncreasing(t *testing.T) {
	prev := map[string]int{}
	for dl := range ParseDiff(sampleDiff) {
		require.Positive(t, dl.Line)
		assert.Greater(t, dl.Line, prev[dl.File], "line numbers must increase within %s", dl.File)
		prev[dl.File] = dl.Line
	}
}

func TestParseDiffIgnoresHeadersAndRemovals(t *testing.T) {
	diff := "diff --git a/x b/x\n--- a/x\n+++ b/x\n@@ -1,2 +1,1 @@\n-gone\n-also gone\n+++not an addition\n"
	assert.Empty(t, slices.Collect(ParseDiff(diff)))
}

func TestParseDiffStripsCarriageReturn(t *testing.T) {
	diff := "diff --git a/w.txt b/w.txt\r\n@@ -0,0 +1 @@\r\n+secret=1\r\n"
	got := slices.Collect(ParseDiff(diff))
	require.Len(t, got, 1)
	assert.Equal(t, "secret=1", got[0].Content)
	assert.Equal(t, "w.txt", got[0].File)
}

func TestParseDiffUnknownFile(t *testing.T) {
	got := slices.Collect(ParseDiff("@@ -0,0 +1 @@\n+orphan\n"))
	require.Len(t, got, 1)
	assert.Equal(t, "unknown", got[0].File)
	assert.Equal(t, 1, got[0].Line)
}

func TestParseDiffResetsCounterPerFile(t *testing.T) {
	diff := "diff --git a/a b/a\n@@ -0,0 +5 @@\n+one\ndiff --git a/b b/b\n+two\n"
	got := slices.Collect(ParseDiff(diff))
	require.Len(t, got, 2)
	assert.Equal(t, 5, got[0].Line)
	assert.Equal(t, models.DiffLine{File: "b", Line: 1, Content: "two"}, got[1])
}

func TestParseDiffStopsEarly(t *testing.T) {
	n := 0
	for range ParseDiff(sampleDiff) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

func TestParseDiffIsRestartable(t *testing.T) {
	seq := ParseDiff(sampleDiff)
	assert.Equal(t, slices.Collect(seq), slices.Collect(seq))
}
