// Copyright 2024 The Flatforge Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package flatforge

import "testing"

// A back-emission that forces the sink's tail capacity to grow must not
// change the address already returned for an earlier front emission;
// EmitBack's own growth never relocates existing bytes, so the address
// formula must not depend on a quantity back-growth changes.
func TestBufferSinkAddressesStableAcrossBackGrowth(t *testing.T) {
	s := newBufferSink(8)

	frontAddr, err := s.EmitFront([]byte{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("EmitFront: %v", err)
	}

	// Force EmitBack's tail-only growth path with a payload larger than
	// the sink's initial capacity.
	big := make([]byte, 64)
	if _, err := s.EmitBack(big); err != nil {
		t.Fatalf("EmitBack: %v", err)
	}

	if got := s.Start() - frontAddr; got != 0 {
		// Start() must still agree with the address already handed out
		// for the front-placed bytes now at the front edge.
		t.Fatalf("front address drifted after back growth: Start()=%d, frontAddr=%d", s.Start(), frontAddr)
	}

	got := s.Bytes()
	if len(got) < 4 || got[0] != 1 || got[1] != 2 || got[2] != 3 || got[3] != 4 {
		t.Fatalf("front bytes corrupted after back growth: %v", got)
	}
}

// EmitFront and EmitBack must agree on a shared coordinate system: the
// address a table computes for its own vtable back-link (tableAddr -
// vtRef) must match what EndTable later observes when it emits the
// table body via EmitFront.
func TestEmitFrontAndEmitBackShareCoordinates(t *testing.T) {
	s := newBufferSink(4)

	vtRef, err := s.EmitBack([]byte{0xAA, 0xBB, 0xCC, 0xDD})
	if err != nil {
		t.Fatalf("EmitBack: %v", err)
	}
	if vtRef != 0 {
		t.Fatalf("first-ever emission address = %d, want 0", vtRef)
	}

	bodyLen := 8
	predictedTableAddr := s.Start() - int64(bodyLen)
	addr, err := s.EmitFront(make([]byte, bodyLen))
	if err != nil {
		t.Fatalf("EmitFront: %v", err)
	}
	if addr != predictedTableAddr {
		t.Fatalf("EmitFront returned %d, predicted %d", addr, predictedTableAddr)
	}
}

func TestCallbackSinkNoLongerTagsBackAddress(t *testing.T) {
	var got int64
	s := NewCallbackSink(func(addr int64, p []byte) error {
		got = addr
		return nil
	})
	ref, err := s.EmitBack([]byte{1, 2, 3})
	if err != nil {
		t.Fatalf("EmitBack: %v", err)
	}
	if ref != got {
		t.Fatalf("EmitBack returned %d, onEmit saw %d; must agree", ref, got)
	}
}
