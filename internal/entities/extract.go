// Package entities pulls structured form values out of a transcript: vehicle
// plates, capacities, places, phone numbers, goods types, weights, dates and
// interface languages.
//
// Every rule is independent and reads the same normalized transcript. Goods
// type and weight are only extracted for add_delivery, language only for
// change_language.
package entities

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/MrWong99/haulvoice/internal/catalog"
	"github.com/MrWong99/haulvoice/internal/transcript/fuzzy"
)

const plateShape = `[a-z]{2}\s?\d{1,2}\s?[a-z]{1,3}\s?\d{1,4}`

var (
	plateBare       = regexp.MustCompile(`\b(` + plateShape + `)`)
	plateIntroduced = regexp.MustCompile(`\b(?:vehicle|number|plate)\s+(?:is\s+)?(` + plateShape + `)`)
	capacityRe      = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(tonnes|tonne|tons|ton|kilograms|kilogram|kgs|kg)\b`)
	weightRe        = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*(?:kilogrammes|kilogramme|kilograms|kilogram|kgs|kg)\b`)
	phoneRe         = regexp.MustCompile(`(?:\+?\d{1,4}[\s-]?)?\(?\d{3}\)?[\s-]?\d{3}[\s-]?\d{4}|\d{10}`)
	phoneSeparators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "")
)

// goodsVocabulary is checked in order; the first entry present wins.
var goodsVocabulary = []string{
	"electronics", "furniture", "food", "clothing",
	"machinery", "textiles", "medicine", "construction",
}

var languages = []struct{ name, code string }{
	{"english", "en"},
	{"hindi", "hi"},
	{"marathi", "mr"},
}

// PlaceMatcher snaps a spoken place phrase to a known place name.
type PlaceMatcher interface {
	Match(phrase string) (corrected string, confidence float64, matched bool)
}

// Option is a functional option for configuring an [Extractor].
type Option func(*Extractor)

// WithClock sets the time source used to resolve "today" and "tomorrow".
func WithClock(now func() time.Time) Option {
	return func(e *Extractor) {
		e.now = now
	}
}

// WithPlaces sets the matcher used to canonicalize locations. Without one,
// locations are title-cased as heard.
func WithPlaces(p PlaceMatcher) Option {
	return func(e *Extractor) {
		e.places = p
	}
}

// Extractor extracts entities from transcripts. It is read-only after
// construction and safe for concurrent use.
type Extractor struct {
	now    func() time.Time
	places PlaceMatcher
}

// New returns an Extractor configured with opts.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		now: time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Extract returns every entity found in transcript for the given intent.
func (e *Extractor) Extract(transcript string, intent catalog.Intent) Bag {
	t := fuzzy.Normalize(transcript)
	var b Bag
	if t == "" {
		return b
	}

	b.VehicleNumber = vehicleNumber(t)
	switch {
	case strings.Contains(t, "truck"):
		b.VehicleType = "Truck"
	case strings.Contains(t, "container"):
		b.VehicleType = "Container"
	}
	b.Capacity = capacity(t)
	b.Location, b.DropLocation = e.locations(t)
	if m := phoneRe.FindString(t); m != "" {
		b.Contact = phoneSeparators.Replace(m)
	}
	b.Date = e.date(t)

	switch intent {
	case catalog.AddDelivery:
		for _, g := range goodsVocabulary {
			if strings.Contains(t, g) {
				b.GoodsType = titleCase(g)
				break
			}
		}
		if m := weightRe.FindStringSubmatch(t); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				b.Weight = &v
			}
		}
	case catalog.ChangeLanguage:
		for _, l := range languages {
			if strings.Contains(t, l.name) {
				b.Language = l.code
				break
			}
		}
	}
	return b
}

func vehicleNumber(t string) string {
	m := plateBare.FindStringSubmatch(t)
	if m == nil {
		m = plateIntroduced.FindStringSubmatch(t)
	}
	if m == nil {
		return ""
	}
	return strings.ToUpper(strings.Join(strings.Fields(m[1]), ""))
}

// capacity returns the first ton or kg quantity in tons, kg rounded to two
// decimals.
func capacity(t string) *float64 {
	m := capacityRe.FindStringSubmatch(t)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	if strings.HasPrefix(m[2], "k") {
		v = math.Round(v/1000*100) / 100
	}
	return &v
}

func (e *Extractor) date(t string) string {
	words := fuzzy.Words(t)
	has := func(w string) bool {
		for _, x := range words {
			if x == w {
				return true
			}
		}
		return false
	}
	now := e.now()
	switch {
	case has("today"):
		return now.Format(time.DateOnly)
	case has("tomorrow"):
		return now.AddDate(0, 0, 1).Format(time.DateOnly)
	}
	return ""
}

// locations resolves the pickup and drop places. Explicit "pickup ..." and
// "drop ..." phrases win; otherwise the first and second locative phrases in
// the transcript are used.
func (e *Extractor) locations(t string) (location, drop string) {
	words := fuzzy.Words(t)
	var pickup, dropOff string
	var generic []string

	for i := 0; i < len(words); i++ {
		w := words[i]
		var (
			phrase string
			next   int
			kind   int
		)
		switch {
		case w == "pickup" || (w == "pick" && at(words, i+1) == "up"):
			j := i + 1
			if w == "pick" {
				j++
			}
			j = skip(words, j, pickupNouns)
			phrase, next = placePhrase(words, skip(words, skip(words, j, copulas), copulas))
			kind = 1
		case w == "drop":
			j := skip(words, i+1, map[string]bool{"off": true})
			j = skip(words, j, dropNouns)
			phrase, next = placePhrase(words, skip(words, skip(words, j, copulas), copulas))
			kind = 2
		case placeNouns[w]:
			phrase, next = placePhrase(words, skip(words, skip(words, i+1, copulas), copulas))
		case prepositions[w]:
			phrase, next = placePhrase(words, i+1)
		default:
			continue
		}

		if phrase == "" || len(phrase) <= 2 || blacklist[phrase] {
			continue
		}
		switch {
		case kind == 1 && pickup == "":
			pickup = phrase
		case kind == 2 && dropOff == "":
			dropOff = phrase
		}
		generic = append(generic, phrase)
		i = next - 1
	}

	switch {
	case pickup != "":
		location = pickup
	case len(generic) > 0:
		location = generic[0]
	}
	switch {
	case dropOff != "":
		drop = dropOff
	default:
		for _, g := range generic {
			if g != location {
				drop = g
				break
			}
		}
	}
	return e.place(location), e.place(drop)
}

func (e *Extractor) place(phrase string) string {
	if phrase == "" {
		return ""
	}
	if e.places != nil {
		if corrected, _, ok := e.places.Match(phrase); ok {
			return corrected
		}
	}
	return titleCase(phrase)
}

// titleCase builds a fresh Caser per call; Casers are stateful.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// placePhrase collects up to three alphabetic words starting at i, skipping a
// leading article and stopping at the first terminator. It returns the
// phrase and the index after it.
func placePhrase(words []string, i int) (string, int) {
	if at(words, i) == "the" {
		i++
	}
	start := i
	for i < len(words) && i-start < 3 && !terminators[words[i]] && alphabetic(words[i]) {
		i++
	}
	return strings.Join(words[start:i], " "), i
}

func skip(words []string, i int, set map[string]bool) int {
	if set[at(words, i)] {
		return i + 1
	}
	return i
}

func at(words []string, i int) string {
	if i < 0 || i >= len(words) {
		return ""
	}
	return words[i]
}

func alphabetic(w string) bool {
	for _, r := range w {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return w != ""
}

func set(words ...string) map[string]bool {
	m := make(map[string]bool, len(words))
	for _, w := range words {
		m[w] = true
	}
	return m
}

var (
	copulas      = set("is", "at")
	pickupNouns  = set("location", "place", "city", "point", "from")
	dropNouns    = set("location", "place", "city", "point", "to")
	placeNouns   = set("location", "place", "city")
	prepositions = set("in", "at", "from", "to")
	blacklist    = set("from", "to", "the", "at", "in")

	// terminators end a place phrase: anchors, entity keywords, command
	// nouns and filler words that never belong to a place name.
	terminators = set(
		"pickup", "pick", "drop", "location", "place", "city", "point",
		"from", "to", "in", "at", "is", "and", "with", "for", "on", "by", "of", "the", "my", "a",
		"vehicle", "number", "plate", "capacity", "contact", "phone", "mobile",
		"weight", "goods", "type", "date", "today", "tomorrow", "ton", "tons", "kg",
		"truck", "trucks", "lorry", "lorries", "container", "delivery", "deliveries",
		"shipment", "shipments", "order", "orders", "dashboard", "home", "profile",
		"page", "form", "main", "help", "please", "now",
		"english", "hindi", "marathi", "language",
		"electronics", "furniture", "food", "clothing", "machinery", "textiles", "medicine", "construction",
	)
)
