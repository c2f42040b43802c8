package database

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedisClientFromURL(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClientFromURL("redis://" + mr.Addr() + "/0")
	if err != nil {
		t.Fatalf("NewRedisClientFromURL: %v", err)
	}
	defer client.Close()

	if _, err := NewRedisClientFromURL("://not a url"); err == nil {
		t.Error("expected an error for a malformed URL")
	}
}
