package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// AssertGolden renders report and compares it against
// testdata/golden/{name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./harness -update
func AssertGolden(t *testing.T, name string, report *Report) {
	t.Helper()

	var buf bytes.Buffer
	if err := report.Render(&buf); err != nil {
		t.Fatalf("render report: %v", err)
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, buf.Bytes())
}
