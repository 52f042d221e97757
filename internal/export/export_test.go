package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"growth-analytics/internal/sim"
)

func TestWriteCSVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	table := Table{
		Name:   "sample",
		Header: []string{"a", "b"},
		Rows:   [][]string{{"1", "x"}, {"2", "y"}},
	}

	if err := WriteCSV(dir, table); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(filepath.Join(dir, "sample.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	want := [][]string{{"a", "b"}, {"1", "x"}, {"2", "y"}}
	if !reflect.DeepEqual(records, want) {
		t.Errorf("read back %v, want %v", records, want)
	}
}

func TestWriteCSVCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")
	if err := WriteCSV(dir, Table{Name: "t", Header: []string{"c"}}); err != nil {
		t.Fatalf("WriteCSV into missing dir: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "t.csv")); err != nil {
		t.Errorf("expected file: %v", err)
	}
}

func TestWriteJSON(t *testing.T) {
	dir := t.TempDir()
	payload := map[string]int{"value": 7}
	if err := WriteJSON(dir, "report", payload); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "report.json"))
	if err != nil {
		t.Fatal(err)
	}
	var got map[string]int
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatal(err)
	}
	if got["value"] != 7 {
		t.Errorf("decoded %v", got)
	}
}

func TestEventsTableOmitsZeroProperties(t *testing.T) {
	ts := time.Date(2023, 6, 5, 9, 30, 0, 0, time.UTC)
	events := []sim.Event{
		{UserID: "u1", Type: sim.EventPageViewed, Timestamp: ts},
		{UserID: "u1", Type: sim.EventContentEdited, Timestamp: ts, Props: sim.Properties{EditDurationMin: 12.5}},
	}

	table := EventsTable(events)
	if len(table.Rows) != 2 {
		t.Fatalf("got %d rows", len(table.Rows))
	}
	// Plain view carries no payload columns.
	if table.Rows[0][4] != "" || table.Rows[0][5] != "" {
		t.Errorf("page view row has payload: %v", table.Rows[0])
	}
	if table.Rows[1][4] != "12.50" {
		t.Errorf("edit duration cell = %q, want 12.50", table.Rows[1][4])
	}
}

func TestUsersTableShape(t *testing.T) {
	users := []sim.User{{
		ID: "u1", SignupDate: time.Date(2023, 1, 10, 0, 0, 0, 0, time.UTC),
		Segment: "individual", AcquisitionChannel: "referral",
		DeviceType: "desktop", Region: "Europe", UseCase: "personal_notes",
		PlanType: sim.PlanFree,
	}}

	table := UsersTable(users)
	if len(table.Header) != 8 || len(table.Rows[0]) != 8 {
		t.Fatalf("header %d cols, row %d cols, want 8/8", len(table.Header), len(table.Rows[0]))
	}
	if table.Rows[0][1] != "2023-01-10" {
		t.Errorf("signup cell = %q", table.Rows[0][1])
	}
}
