// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package event_test

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/blinklabs-io/gobject/event"
)

func receiveEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt, ok := <-ch:
		require.True(t, ok, "event channel closed unexpectedly")
		return evt
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
	return event.Event{}
}

func TestEventBusSubscribers(t *testing.T) {
	defer goleak.VerifyNone(t)
	testEvtType := event.EventType("test.event")
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, sub1Ch := eb.Subscribe(testEvtType)
	_, sub2Ch := eb.Subscribe(testEvtType)
	_, otherCh := eb.Subscribe("other.event")
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	for _, ch := range []<-chan event.Event{sub1Ch, sub2Ch} {
		evt := receiveEvent(t, ch)
		assert.Equal(t, testEvtType, evt.Type)
		assert.Equal(t, 999, evt.Data)
	}
	select {
	case <-otherCh:
		t.Fatal("received event for another type")
	default:
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	testEvtType := event.EventType("test.event")
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	eb.Unsubscribe(testEvtType, subId)
	eb.Publish(testEvtType, event.NewEvent(testEvtType, 999))
	_, ok := <-subCh
	assert.False(t, ok, "subscriber channel should be closed after Unsubscribe")
	// Unknown subscriptions are ignored
	eb.Unsubscribe(testEvtType, subId)
}

func TestEventBusStop(t *testing.T) {
	defer goleak.VerifyNone(t)
	testEvtType := event.EventType("test.event")
	eb := event.NewEventBus(nil, nil)
	_, subCh := eb.Subscribe(testEvtType)
	received := make(chan struct{}, 1)
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		received <- struct{}{}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "before"))
	select {
	case <-received:
	case <-time.After(time.Second):
		t.Fatal("SubscribeFunc did not receive event before Stop")
	}
	eb.Stop()
	// Buffered events drain before the channel reports closed
	for range subCh {
	}
	assert.False(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, "after")))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "after"))
	select {
	case <-received:
		t.Fatal("SubscribeFunc received event after Stop")
	case <-time.After(50 * time.Millisecond):
	}
	eb.Stop()
}

func TestEventBusPublishAsync(t *testing.T) {
	testEvtType := event.ChainTipEventType
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	_, subCh := eb.Subscribe(testEvtType)
	tip := event.ChainTipEvent{BlockHash: chainhash.Hash{0x01}, Height: 42}
	require.True(t, eb.PublishAsync(testEvtType, event.NewEvent(testEvtType, tip)))
	evt := receiveEvent(t, subCh)
	assert.Equal(t, tip, evt.Data)
}

func TestSubscribeFuncPanicRecovery(t *testing.T) {
	testEvtType := event.EventType("test.panic")
	eb := event.NewEventBus(nil, nil)
	defer eb.Stop()
	var received atomic.Int32
	eb.SubscribeFunc(testEvtType, func(evt event.Event) {
		if received.Add(1) == 1 {
			panic("intentional test panic")
		}
	})
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "panic"))
	eb.Publish(testEvtType, event.NewEvent(testEvtType, "after-panic"))
	require.Eventually(
		t,
		func() bool { return received.Load() >= 2 },
		2*time.Second,
		10*time.Millisecond,
		"handler should continue processing events after a panic",
	)
}

func TestEventBusMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	testEvtType := event.RosterChangeEventType
	eb := event.NewEventBus(reg, nil)
	defer eb.Stop()
	subId, subCh := eb.Subscribe(testEvtType)
	for range event.EventQueueSize + 2 {
		eb.Publish(testEvtType, event.NewEvent(testEvtType, event.RosterChangeEvent{Reindexed: true}))
	}
	assert.Equal(t, event.EventQueueSize, len(subCh))
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(`
# HELP gobject_event_dropped_total events dropped because a queue was full
# TYPE gobject_event_dropped_total counter
gobject_event_dropped_total{type="roster.change"} 2
# HELP gobject_event_published_total total events published by type
# TYPE gobject_event_published_total counter
gobject_event_published_total{type="roster.change"} 22
# HELP gobject_event_subscribers current subscribers by event type
# TYPE gobject_event_subscribers gauge
gobject_event_subscribers{type="roster.change"} 1
`),
	))
	eb.Unsubscribe(testEvtType, subId)
	require.NoError(t, testutil.GatherAndCompare(
		reg,
		strings.NewReader(`
# HELP gobject_event_subscribers current subscribers by event type
# TYPE gobject_event_subscribers gauge
gobject_event_subscribers{type="roster.change"} 0
`),
		"gobject_event_subscribers",
	))
}
