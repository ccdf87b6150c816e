package drumengine

import "testing"

func TestParseDrumsetRoundTrip(t *testing.T) {
	layers := []Layer{
		testLayer(0, 63, 1, 10, 100),
		testLayer(64, 127, 1, 10, 200),
	}
	b := encodeDrumset(t, map[uint8][]Layer{36: layers})

	ds, err := ParseDrumset(b)
	if err != nil {
		t.Fatalf("ParseDrumset: %v", err)
	}

	inst, ok := ds.Instruments[36]
	if !ok {
		t.Fatalf("expected instrument 36")
	}
	if len(inst.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(inst.Layers))
	}
	if inst.Layers[0].Data[0] != 100 || inst.Layers[1].Data[0] != 200 {
		t.Errorf("layer sample data did not round trip")
	}
}

func TestParseDrumsetMissingMagic(t *testing.T) {
	_, err := ParseDrumset([]byte("XXXX"))
	if err == nil {
		t.Fatal("expected error for bad magic")
	}
	if KindOf(err) != KindBadFormat {
		t.Errorf("expected KindBadFormat, got %v", KindOf(err))
	}
}

func TestParseDrumsetMissingInstrumentTable(t *testing.T) {
	var out []byte
	out = append(out, []byte(drumsetMagic)...)
	_, err := ParseDrumset(out)
	if err == nil {
		t.Fatal("expected error for missing INST chunk")
	}
}

func TestSelectLayerPicksHighestMatchingVelocity(t *testing.T) {
	inst := &Instrument{
		Note: 36,
		Layers: []Layer{
			{MinVelocity: 0, MaxVelocity: 63},
			{MinVelocity: 64, MaxVelocity: 100},
			{MinVelocity: 101, MaxVelocity: 127},
		},
	}

	cases := []struct {
		velocity uint8
		wantIdx  int
	}{
		{0, 0},
		{63, 0},
		{64, 1},
		{100, 1},
		{101, 2},
		{127, 2},
	}
	for _, c := range cases {
		got := selectLayer(inst, c.velocity)
		want := &inst.Layers[c.wantIdx]
		if got != want {
			t.Errorf("velocity %d: expected layer %d, got a different layer", c.velocity, c.wantIdx)
		}
	}
}

func TestSelectLayerTiesResolveToLaterDeclaration(t *testing.T) {
	inst := &Instrument{
		Note: 36,
		Layers: []Layer{
			{MinVelocity: 0, MaxVelocity: 127},
			{MinVelocity: 0, MaxVelocity: 127},
		},
	}
	got := selectLayer(inst, 50)
	if got != &inst.Layers[1] {
		t.Errorf("expected tie to resolve to the later-declared layer")
	}
}

func TestDrumsetResolveDetectsUnresolvedNote(t *testing.T) {
	ds := testDrumset(36, testLayer(0, 127, 1, 10, 1))
	song := &Song{
		DefaultTempoBPM: 120,
		Parts: []Part{
			{Main: simpleMainSection(TicksPerBeat*4, 40)}, // references note 40, not in ds
		},
	}

	if err := ds.Resolve(song); err == nil {
		t.Fatal("expected Resolve to reject a song referencing an unmapped note")
	}
}

func TestDrumsetResolveAcceptsFullyMappedSong(t *testing.T) {
	ds := testDrumset(36, testLayer(0, 127, 1, 10, 1))
	song := &Song{
		DefaultTempoBPM: 120,
		Parts: []Part{
			{Main: simpleMainSection(TicksPerBeat*4, 36)},
		},
	}

	if err := ds.Resolve(song); err != nil {
		t.Errorf("expected Resolve to accept a fully mapped song, got %v", err)
	}
}
