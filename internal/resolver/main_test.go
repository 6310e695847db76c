package resolver

import (
	"fmt"
	"os"
	"testing"

	"github.com/specialistvlad/hostresolve/internal/testutil"
)

var fixtures *testutil.Fixtures

func TestMain(m *testing.M) {
	base, err := os.MkdirTemp("", "hostresolve-fixtures-*")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fixtures = testutil.NewFixtures(base)
	code := m.Run()
	os.RemoveAll(base)
	os.Exit(code)
}
