package gtfs

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir, "stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon\n"+
			"S1,MG Road,12.9758,77.6045\n"+
			"S2,Trinity Circle,12.9730,77.6190\n")
	writeFixture(t, dir, "routes.txt",
		"route_id,route_short_name,route_long_name\n"+
			"R1,335E,Kempegowda Bus Station - Kadugodi\n")
	writeFixture(t, dir, "trips.txt",
		"route_id,service_id,trip_id\n"+
			"R1,WK,T1\n")
	writeFixture(t, dir, "stop_times.txt",
		"trip_id,arrival_time,departure_time,stop_id,stop_sequence\n"+
			"T1,08:05:00,08:05:00,S2,2\n"+
			"T1,08:00:00,08:00:00,S1,1\n")
	return dir
}

func TestLoad(t *testing.T) {
	store := NewStore()
	loader := NewLoader(fixtureDir(t), store)

	if err := loader.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if store.StopCount() != 2 {
		t.Errorf("stop count = %d, want 2", store.StopCount())
	}
	if store.TripCount() != 1 {
		t.Errorf("trip count = %d, want 1", store.TripCount())
	}

	stop, ok := store.Stop("S1")
	if !ok {
		t.Fatal("stop S1 not loaded")
	}
	if stop.Name != "MG Road" || stop.Lat != 12.9758 || stop.Lon != 77.6045 {
		t.Errorf("stop S1 = %+v", stop)
	}

	if ids := store.StopIDsByName("mg road"); len(ids) != 1 || ids[0] != "S1" {
		t.Errorf("StopIDsByName = %v, want [S1]", ids)
	}

	// Out-of-order stop_times rows must come back sorted by sequence
	sts := store.StopTimes("T1")
	if len(sts) != 2 {
		t.Fatalf("stop times = %d, want 2", len(sts))
	}
	if sts[0].StopID != "S1" || sts[1].StopID != "S2" {
		t.Errorf("stop times not ordered by sequence: %s, %s", sts[0].StopID, sts[1].StopID)
	}

	if name := store.RouteName("T1"); name != "Kempegowda Bus Station - Kadugodi" {
		t.Errorf("route name = %q", name)
	}
}

func TestLoadMissingFile(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "stops.txt", "stop_id,stop_name,stop_lat,stop_lon\nS1,A,1,1\n")

	loader := NewLoader(dir, NewStore())
	if err := loader.Load(); err == nil {
		t.Fatal("expected error for missing schedule files")
	}
}

func TestLoadSkipsRecordsWithoutIDs(t *testing.T) {
	dir := fixtureDir(t)
	writeFixture(t, dir, "stops.txt",
		"stop_id,stop_name,stop_lat,stop_lon\n"+
			",Ghost Stop,0,0\n"+
			"S1,MG Road,12.9758,77.6045\n")

	store := NewStore()
	if err := NewLoader(dir, store).Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if store.StopCount() != 1 {
		t.Errorf("stop count = %d, want 1", store.StopCount())
	}
}

func TestRouteNameFallsBackToRouteID(t *testing.T) {
	store := NewStore()
	store.AddTrip(&Trip{ID: "T9", RouteID: "R9"})

	if name := store.RouteName("T9"); name != "R9" {
		t.Errorf("route name = %q, want R9", name)
	}
}
