package entities_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/entities"
	"github.com/MrWong99/haulvoice/internal/transcript/phonetic"
)

var fixedNow = time.Date(2026, time.March, 31, 22, 30, 0, 0, time.Local)

func newExtractor(opts ...entities.Option) *entities.Extractor {
	opts = append([]entities.Option{entities.WithClock(func() time.Time { return fixedNow })}, opts...)
	return entities.New(opts...)
}

func ptr(v float64) *float64 { return &v }

func floatEq(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func TestExtract_EndToEndTruck(t *testing.T) {
	t.Parallel()

	b := newExtractor().Extract("add my truck vehicle number mh12ab1234 capacity 5 tons location mumbai contact 9876543210", catalog.AddTruck)

	want := entities.Bag{
		VehicleNumber: "MH12AB1234",
		VehicleType:   "Truck",
		Capacity:      ptr(5),
		Location:      "Mumbai",
		Contact:       "9876543210",
	}
	if b.VehicleNumber != want.VehicleNumber || b.VehicleType != want.VehicleType ||
		!floatEq(b.Capacity, want.Capacity) || b.Location != want.Location || b.Contact != want.Contact {
		t.Errorf("Extract = %+v, want %+v", b, want)
	}
	if b.DropLocation != "" || b.GoodsType != "" || b.Weight != nil || b.Date != "" || b.Language != "" {
		t.Errorf("unexpected extra entities: %+v", b)
	}
}

func TestExtract_Capacity(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		want       *float64
	}{
		{"capacity 5 tons", ptr(5)},
		{"capacity 5000 kg", ptr(5)},
		{"capacity 500 kg", ptr(0.5)},
		{"capacity 1234 kg", ptr(1.23)},
		{"capacity 2.5 tonnes", ptr(2.5)},
		{"capacity 12 ton", ptr(12)},
		{"capacity 750 kilograms", ptr(0.75)},
		{"capacity 10tons", ptr(10)},
		{"capacity five tons", nil},
		{"capacity 5 tonsils", nil},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			got := e.Extract(tt.transcript, catalog.AddTruck).Capacity
			if !floatEq(got, tt.want) {
				t.Errorf("Capacity = %v, want %v", deref(got), deref(tt.want))
			}
		})
	}
}

func deref(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func TestExtract_VehicleNumber(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		want       string
	}{
		{"vehicle number MH 12 AB 1234", "MH12AB1234"},
		{"vehicle number mh12ab1234", "MH12AB1234"},
		{"plate is dl 1 c 99", "DL1C99"},
		{"register ka05mn7", "KA05MN7"},
		{"add my truck", ""},
		{"capacity 5 tons", ""},
	}
	for _, tt := range tests {
		if got := e.Extract(tt.transcript, catalog.AddTruck).VehicleNumber; got != tt.want {
			t.Errorf("Extract(%q).VehicleNumber = %q, want %q", tt.transcript, got, tt.want)
		}
	}
}

func TestExtract_VehicleType(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		want       string
	}{
		{"add my truck", "Truck"},
		{"add my trucks", "Truck"},
		{"add a container truck", "Truck"},
		{"add a container", "Container"},
		{"add my lorry", ""},
	}
	for _, tt := range tests {
		if got := e.Extract(tt.transcript, catalog.AddTruck).VehicleType; got != tt.want {
			t.Errorf("Extract(%q).VehicleType = %q, want %q", tt.transcript, got, tt.want)
		}
	}
}

func TestExtract_Locations(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		location   string
		drop       string
	}{
		{"pickup location Mumbai drop location Delhi", "Mumbai", "Delhi"},
		{"drop location delhi pickup location mumbai", "Mumbai", "Delhi"},
		{"add delivery from pune to navi mumbai tomorrow", "Pune", "Navi Mumbai"},
		{"my truck is located in nagpur", "Nagpur", ""},
		{"location is at nashik contact 9876543210", "Nashik", ""},
		{"pick up from surat drop off at vapi", "Surat", "Vapi"},
		{"pickup mumbai to delhi", "Mumbai", "Delhi"},
		{"from mumbai to mumbai", "Mumbai", ""},
		{"go to the dashboard", "", ""},
		{"switch to hindi", "", ""},
		{"city is in", "", ""},
		{"from to", "", ""},
		{"based in new delhi east side today", "New Delhi East", ""},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			t.Parallel()
			b := e.Extract(tt.transcript, catalog.AddDelivery)
			if b.Location != tt.location || b.DropLocation != tt.drop {
				t.Errorf("Extract(%q) = (location %q, drop %q), want (%q, %q)",
					tt.transcript, b.Location, b.DropLocation, tt.location, tt.drop)
			}
		})
	}
}

func TestExtract_LocationsWithPlaceMatcher(t *testing.T) {
	t.Parallel()

	e := newExtractor(entities.WithPlaces(phonetic.New([]string{"Mumbai", "Delhi", "Pune"})))
	b := e.Extract("pickup location mumbay drop location dehli", catalog.AddDelivery)
	if b.Location != "Mumbai" || b.DropLocation != "Delhi" {
		t.Errorf("locations = (%q, %q), want (Mumbai, Delhi)", b.Location, b.DropLocation)
	}
	// Unknown places fall back to title case.
	b = e.Extract("location kolhapur", catalog.AddTruck)
	if b.Location != "Kolhapur" {
		t.Errorf("location = %q, want Kolhapur", b.Location)
	}
}

func TestExtract_Contact(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		want       string
	}{
		{"contact 9876543210", "9876543210"},
		{"contact 987-654-3210", "9876543210"},
		{"contact (987) 654 3210", "9876543210"},
		{"contact +91 9876543210", "+919876543210"},
		{"contact 12345", ""},
	}
	for _, tt := range tests {
		if got := e.Extract(tt.transcript, catalog.AddTruck).Contact; got != tt.want {
			t.Errorf("Extract(%q).Contact = %q, want %q", tt.transcript, got, tt.want)
		}
	}
}

func TestExtract_DeliveryOnlyEntities(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	const transcript = "add delivery goods type furniture and electronics weight 100 kg"

	b := e.Extract(transcript, catalog.AddDelivery)
	if b.GoodsType != "Electronics" {
		t.Errorf("GoodsType = %q, want Electronics (vocabulary order)", b.GoodsType)
	}
	if !floatEq(b.Weight, ptr(100)) {
		t.Errorf("Weight = %v, want 100", deref(b.Weight))
	}

	b = e.Extract(transcript, catalog.AddTruck)
	if b.GoodsType != "" || b.Weight != nil {
		t.Errorf("add_truck extracted delivery entities: %+v", b)
	}
}

func TestExtract_Weight(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		want       *float64
	}{
		{"weight 250 kg", ptr(250)},
		{"weight 12.5 kilograms", ptr(12.5)},
		{"weight 3 tons", nil},
	}
	for _, tt := range tests {
		if got := e.Extract(tt.transcript, catalog.AddDelivery).Weight; !floatEq(got, tt.want) {
			t.Errorf("Extract(%q).Weight = %v, want %v", tt.transcript, deref(got), deref(tt.want))
		}
	}
}

func TestExtract_Date(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		want       string
	}{
		{"pickup today", "2026-03-31"},
		{"pickup tomorrow", "2026-04-01"},
		{"today or tomorrow", "2026-03-31"},
		{"pickup next week", ""},
	}
	for _, tt := range tests {
		if got := e.Extract(tt.transcript, catalog.AddDelivery).Date; got != tt.want {
			t.Errorf("Extract(%q).Date = %q, want %q", tt.transcript, got, tt.want)
		}
	}
}

func TestExtract_Language(t *testing.T) {
	t.Parallel()

	e := newExtractor()
	tests := []struct {
		transcript string
		intent     catalog.Intent
		want       string
	}{
		{"change language to hindi", catalog.ChangeLanguage, "hi"},
		{"switch to marathi", catalog.ChangeLanguage, "mr"},
		{"speak in english", catalog.ChangeLanguage, "en"},
		{"english or hindi", catalog.ChangeLanguage, "en"},
		{"change language", catalog.ChangeLanguage, ""},
		{"switch to hindi", catalog.Help, ""},
	}
	for _, tt := range tests {
		if got := e.Extract(tt.transcript, tt.intent).Language; got != tt.want {
			t.Errorf("Extract(%q, %s).Language = %q, want %q", tt.transcript, tt.intent, got, tt.want)
		}
	}
}

func TestExtract_EmptyTranscript(t *testing.T) {
	t.Parallel()

	if b := newExtractor().Extract("   ", catalog.AddTruck); !b.IsEmpty() {
		t.Errorf("Extract(blank) = %+v, want empty", b)
	}
}

func TestBag_JSONOmitsAbsentKeys(t *testing.T) {
	t.Parallel()

	b := newExtractor().Extract("add my truck capacity 5 tons", catalog.AddTruck)
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(m) != 2 || m["capacity"] != 5.0 || m["vehicleType"] != "Truck" {
		t.Errorf("JSON = %s, want only capacity and vehicleType", data)
	}
}

func TestBag_Fields(t *testing.T) {
	t.Parallel()

	b := entities.Bag{Capacity: ptr(0.5), Weight: ptr(100), Location: "Pune"}
	f := b.Fields()
	if f["capacity"] != "0.5" || f["weight"] != "100" || f["location"] != "Pune" || len(f) != 3 {
		t.Errorf("Fields() = %v", f)
	}
	if b.Len() != 3 {
		t.Errorf("Len() = %d, want 3", b.Len())
	}
	zero := entities.Bag{Capacity: ptr(0)}
	if zero.Fields()["capacity"] != "0" {
		t.Errorf("zero capacity not reported: %v", zero.Fields())
	}
}
