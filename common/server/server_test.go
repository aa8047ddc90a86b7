package server

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/lyzr/imagehost/common/config"
	"github.com/lyzr/imagehost/common/logger"
	"github.com/stretchr/testify/assert"
)

func TestStart_StopsOnContextCancel(t *testing.T) {
	srv := New(config.ServiceConfig{Name: "test", Port: 0, ReadTimeout: time.Second, WriteTimeout: time.Second},
		http.NotFoundHandler(), logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Start(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
