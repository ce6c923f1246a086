package osmingest

import (
	"testing"

	"github.com/paulmach/osm"

	"chcore/pkg/chmodel"
)

func tags(kv ...string) osm.Tags {
	var t osm.Tags
	for i := 0; i+1 < len(kv); i += 2 {
		t = append(t, osm.Tag{Key: kv[i], Value: kv[i+1]})
	}
	return t
}

func TestIsCarAccessible(t *testing.T) {
	cases := []struct {
		name string
		tags osm.Tags
		want bool
	}{
		{"residential road", tags("highway", "residential"), true},
		{"footway is not a road type", tags("highway", "footway"), false},
		{"no highway tag at all", tags(), false},
		{"access=private blocks it", tags("highway", "residential", "access", "private"), false},
		{"area=yes blocks it", tags("highway", "residential", "area", "yes"), false},
		{"motor_vehicle=no blocks it", tags("highway", "residential", "motor_vehicle", "no"), false},
	}
	for _, c := range cases {
		if got := isCarAccessible(c.tags); got != c.want {
			t.Errorf("%s: isCarAccessible() = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestDirectionFlags(t *testing.T) {
	cases := []struct {
		name         string
		tags         osm.Tags
		wantFwd, wantBwd bool
	}{
		{"plain two-way residential", tags("highway", "residential"), true, true},
		{"motorway is one-way by default", tags("highway", "motorway"), true, false},
		{"roundabout junction is one-way", tags("highway", "residential", "junction", "roundabout"), true, false},
		{"explicit oneway=yes", tags("highway", "residential", "oneway", "yes"), true, false},
		{"explicit oneway=-1 reverses it", tags("highway", "residential", "oneway", "-1"), false, true},
		{"oneway=no overrides motorway default", tags("highway", "motorway", "oneway", "no"), true, true},
		{"reversible has no fixed direction", tags("highway", "residential", "oneway", "reversible"), false, false},
	}
	for _, c := range cases {
		fwd, bwd := directionFlags(c.tags)
		if fwd != c.wantFwd || bwd != c.wantBwd {
			t.Errorf("%s: directionFlags() = (%v, %v), want (%v, %v)", c.name, fwd, bwd, c.wantFwd, c.wantBwd)
		}
	}
}

func TestMaxspeedKMH(t *testing.T) {
	cases := []struct {
		value string
		want  int32
	}{
		{"50", 50},
		{"30 mph", 48},
		{"", 0},
		{"walk", 0},
	}
	for _, c := range cases {
		got := maxspeedKMH(tags("maxspeed", c.value))
		if c.value == "" {
			got = maxspeedKMH(osm.Tags{})
		}
		if got != c.want {
			t.Errorf("maxspeedKMH(%q) = %d, want %d", c.value, got, c.want)
		}
	}
}

func TestBBoxContains(t *testing.T) {
	b := BBox{MinLat: 1.0, MaxLat: 2.0, MinLon: 103.0, MaxLon: 104.0}
	if b.isZero() {
		t.Fatal("a populated BBox must not report isZero")
	}
	if !b.contains(1.5, 103.5) {
		t.Error("point inside the box should be contained")
	}
	if b.contains(5.0, 103.5) {
		t.Error("point outside the box must not be contained")
	}

	var zero BBox
	if !zero.isZero() {
		t.Error("the zero-value BBox should report isZero")
	}
}

func TestNewOSMEdgeHasNoChildren(t *testing.T) {
	e := newOSMEdge(0, 1, 42, wayInfo{roadType: 3, speed: 50})
	if e.Src != 0 || e.Tgt != 1 || e.Dist != 42 {
		t.Errorf("newOSMEdge endpoints/dist = %+v", e)
	}
	if e.ChildEdge1 != chmodel.NoEdge || e.ChildEdge2 != chmodel.NoEdge || e.CenterNode != chmodel.NoNode {
		t.Errorf("a raw OSM edge must not look like a shortcut: %+v", e)
	}
	if e.RoadType != 3 || e.Speed != 50 {
		t.Errorf("road type / speed not carried through: %+v", e)
	}
}
