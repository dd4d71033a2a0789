package contenttest_test

import (
	"testing"

	"github.com/doodlemint/doodlemint/pkg/content/contenttest"
)

func TestMemStoreConformance(t *testing.T) {
	contenttest.RunConformance(t, func(t *testing.T) contenttest.Store {
		return contenttest.NewMemStore("https://gw.example/ipfs/")
	})
}
