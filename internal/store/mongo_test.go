package store

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func startMongo(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping mongodb integration test in short mode")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		t.Skipf("docker not available: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("ConnectionString() error = %v", err)
	}
	return uri
}

func TestMongoSetAndKV(t *testing.T) {
	uri := startMongo(t)
	ctx := context.Background()

	m, err := ConnectMongo(ctx, uri, "ytlive_test", nil)
	if err != nil {
		t.Fatalf("ConnectMongo() error = %v", err)
	}
	defer m.Close(ctx)

	if err := m.Health(ctx); err != nil {
		t.Fatalf("Health() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := m.Add(ctx, "youtube.nowRecord", "abcdefghijk"); err != nil {
			t.Fatalf("Add() error = %v", err)
		}
	}
	if err := m.Add(ctx, "youtube.nowRecord", "bbbbbbbbbbb"); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	members, err := m.Members(ctx, "youtube.nowRecord")
	if err != nil {
		t.Fatalf("Members() error = %v", err)
	}
	if len(members) != 2 || members[0] != "abcdefghijk" {
		t.Fatalf("members = %v", members)
	}
	if err := m.Remove(ctx, "youtube.nowRecord", "abcdefghijk"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	members, _ = m.Members(ctx, "youtube.nowRecord")
	if len(members) != 1 || members[0] != "bbbbbbbbbbb" {
		t.Fatalf("members after remove = %v", members)
	}

	if _, ok, err := m.Get(ctx, "discord_stream_bot:ChannelNameToId:aqua"); err != nil || ok {
		t.Fatalf("Get() on empty = %v, %v", ok, err)
	}
	if err := m.Set(ctx, "discord_stream_bot:ChannelNameToId:aqua", "UC1opHUrw8rvnsadT-iGp7Cg"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := m.Get(ctx, "discord_stream_bot:ChannelNameToId:aqua")
	if err != nil || !ok || v != "UC1opHUrw8rvnsadT-iGp7Cg" {
		t.Fatalf("Get() = %q, %v, %v", v, ok, err)
	}
}
