package telemetry

import "testing"

func TestPublishDeliversToRegisteredClient(t *testing.T) {
	h := NewHub(nil)
	c := h.register()
	defer h.unregister(c)

	h.Publish(TaskTransition(1, 2, "ready", "running"))

	select {
	case ev := <-c.send:
		if ev.Kind != EventTaskTransition || ev.TaskID != 1 || ev.ToState != "running" {
			t.Fatalf("got %+v", ev)
		}
		if ev.Time.IsZero() {
			t.Fatal("Publish() did not stamp Time")
		}
	default:
		t.Fatal("client received nothing")
	}
}

func TestPublishFansOutToAllClients(t *testing.T) {
	h := NewHub(nil)
	a := h.register()
	b := h.register()
	defer h.unregister(a)
	defer h.unregister(b)

	h.Publish(Trap(1, 1, "unreachable"))

	for _, c := range []*client{a, b} {
		select {
		case ev := <-c.send:
			if ev.Kind != EventTrap {
				t.Fatalf("got %+v", ev)
			}
		default:
			t.Fatal("a registered client missed the event")
		}
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	h := NewHub(nil)
	c := h.register()
	h.unregister(c)

	h.Publish(Preemption(1, 1, "priority"))

	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", h.ClientCount())
	}
}

func TestPublishDropsEventWhenClientBufferFull(t *testing.T) {
	h := NewHub(nil)
	c := h.register()
	defer h.unregister(c)

	for i := 0; i < clientSendBuffer+5; i++ {
		h.Publish(FuelExhaustion(uint64(i), 1, 100, 100))
	}

	if len(c.send) != clientSendBuffer {
		t.Fatalf("buffered = %d, want %d (full, no blocking)", len(c.send), clientSendBuffer)
	}
}

func TestClientCountReflectsRegistrations(t *testing.T) {
	h := NewHub(nil)
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d, want 0", h.ClientCount())
	}
	a := h.register()
	b := h.register()
	if h.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d, want 2", h.ClientCount())
	}
	h.unregister(a)
	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", h.ClientCount())
	}
	h.unregister(b)
}
