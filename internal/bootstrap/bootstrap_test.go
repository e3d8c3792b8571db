package bootstrap

import (
	"testing"

	"github.com/mirceapaciu/econ-assistant/internal/infrastructure/queue/nats"
)

func TestLoadQueueNilWhenQueueUnset(t *testing.T) {
	app := &App{}
	if q := app.LoadQueue(); q != nil {
		t.Fatalf("LoadQueue() = %#v, want nil interface", q)
	}
}

func TestLoadQueueWrapsConfiguredQueue(t *testing.T) {
	app := &App{Queue: &nats.Queue{}}
	if app.LoadQueue() == nil {
		t.Fatal("LoadQueue() = nil for a configured queue")
	}
}
