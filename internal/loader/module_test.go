package loader_test

import (
	"testing"

	"github.com/anp-net/anpd/internal/loader"
)

func TestRegisterFactory_duplicateNamePanics(t *testing.T) {
	loader.RegisterFactory("test.dup.guard", func() loader.Module { return nil })
	defer func() {
		if recover() == nil {
			t.Fatal("expected registering the same factory name twice to panic")
		}
	}()
	loader.RegisterFactory("test.dup.guard", func() loader.Module { return nil })
}
