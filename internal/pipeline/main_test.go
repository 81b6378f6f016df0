package pipeline

import (
	"os"
	"testing"

	"needle-go/pkg/log"
)

func TestMain(m *testing.M) {
	log.Init("error", "json", "")
	os.Exit(m.Run())
}
