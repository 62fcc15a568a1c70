package services

import (
	"sync"
	"testing"

	"github.com/truckmitra/truckmitra-backend/pkg/utils"
)

func wsTestHub(clients ...*Client) *Hub {
	if utils.Logger == nil {
		utils.InitLogger()
	}
	h := NewHub()
	for _, c := range clients {
		h.clients[c] = true
	}
	return h
}

func wsTestClient(id uint, userType string, buffer int) *Client {
	return &Client{
		ID:       id,
		UserType: userType,
		Send:     make(chan []byte, buffer),
	}
}

func TestBroadcastToUserDeliversOnlyToMatchingClients(t *testing.T) {
	vendor := wsTestClient(1, "vendor", 4)
	client := wsTestClient(1, "client", 4)
	other := wsTestClient(2, "vendor", 4)
	h := wsTestHub(vendor, client, other)

	h.BroadcastToUser(1, "vendor", []byte("offer"))

	if len(vendor.Send) != 1 {
		t.Errorf("expected 1 message for the vendor, got %d", len(vendor.Send))
	}
	if len(client.Send) != 0 {
		t.Error("client with the same id but different type must not receive the message")
	}
	if len(other.Send) != 0 {
		t.Error("unrelated vendor must not receive the message")
	}
}

func TestBroadcastToUserEvictsWedgedClientOnce(t *testing.T) {
	wedged := wsTestClient(7, "vendor", 1)
	wedged.Send <- []byte("unread") // buffer full, every further send falls through
	healthy := wsTestClient(7, "vendor", 256)
	h := wsTestHub(wedged, healthy)

	// Concurrent broadcasts from handler goroutines must not corrupt the
	// client set or close the wedged client's channel twice.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 16; j++ {
				h.BroadcastToUser(7, "vendor", []byte("ping"))
			}
		}()
	}
	wg.Wait()

	if h.GetConnectedClients() != 1 {
		t.Fatalf("expected only the healthy client to remain, got %d", h.GetConnectedClients())
	}
	h.mutex.RLock()
	_, wedgedStill := h.clients[wedged]
	_, healthyStill := h.clients[healthy]
	h.mutex.RUnlock()
	if wedgedStill {
		t.Error("wedged client was not evicted")
	}
	if !healthyStill {
		t.Error("healthy client must survive the broadcasts")
	}

	// The evicted channel is closed: after draining the buffered message the
	// receive must report closed rather than block.
	<-wedged.Send
	if _, ok := <-wedged.Send; ok {
		t.Error("expected the evicted client's channel to be closed")
	}
}

func TestEvictIsIdempotent(t *testing.T) {
	c := wsTestClient(3, "client", 1)
	h := wsTestHub(c)

	h.evict(c)
	h.evict(c) // second eviction must be a no-op, not a double close

	if h.GetConnectedClients() != 0 {
		t.Errorf("expected empty hub, got %d clients", h.GetConnectedClients())
	}
}
