package entities

import "strconv"

// Bag holds the entities extracted from one utterance. Empty strings and nil
// numbers mean the entity was not found; they are omitted from JSON.
type Bag struct {
	VehicleNumber string   `json:"vehicleNumber,omitempty"`
	VehicleType   string   `json:"vehicleType,omitempty"`
	Capacity      *float64 `json:"capacity,omitempty"`
	Location      string   `json:"location,omitempty"`
	DropLocation  string   `json:"dropLocation,omitempty"`
	Contact       string   `json:"contact,omitempty"`
	GoodsType     string   `json:"goodsType,omitempty"`
	Weight        *float64 `json:"weight,omitempty"`
	Date          string   `json:"date,omitempty"`
	Language      string   `json:"language,omitempty"`
}

// Fields returns the present entities as strings keyed by their JSON name.
func (b Bag) Fields() map[string]string {
	out := make(map[string]string, 10)
	put := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	put("vehicleNumber", b.VehicleNumber)
	put("vehicleType", b.VehicleType)
	put("location", b.Location)
	put("dropLocation", b.DropLocation)
	put("contact", b.Contact)
	put("goodsType", b.GoodsType)
	put("date", b.Date)
	put("language", b.Language)
	if b.Capacity != nil {
		out["capacity"] = formatNumber(*b.Capacity)
	}
	if b.Weight != nil {
		out["weight"] = formatNumber(*b.Weight)
	}
	return out
}

// Len returns the number of present entities.
func (b Bag) Len() int { return len(b.Fields()) }

// IsEmpty reports whether no entity was extracted.
func (b Bag) IsEmpty() bool { return b.Len() == 0 }

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
