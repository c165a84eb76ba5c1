package catalog

import "sync"

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// Default returns the built-in T2YD command catalog. Entries are matched in
// the order listed here: the form-gated submit command first, help last.
func Default() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := New(defaultCommands(), AddTruck, AddDelivery, GoDashboard)
		if err != nil {
			panic("catalog: built-in catalog is invalid: " + err.Error())
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func patterns(templates ...string) []Pattern {
	out := make([]Pattern, len(templates))
	for i, t := range templates {
		out[i] = MustCompilePattern(t)
	}
	return out
}

func defaultCommands() []Command {
	return []Command{
		{
			ID:           SubmitForm,
			Primary:      "Submit form",
			Alternatives: []string{"Submit", "Save form", "Register", "Create"},
			Keywords:     []string{"submit", "save", "form", "send"},
			Examples:     []string{"Submit form", "Submit the form", "Save form"},
			Description:  "Submits the current form if all required fields are filled",
			Patterns: patterns(
				"(submit|save|send|register|create) [the|this] (form|truck|lorry|delivery|shipment)",
				"^ (submit|save) [it|now] $",
			),
			RequiresForm: true,
		},
		{
			ID:           AddTruck,
			Primary:      "Add my truck",
			Alternatives: []string{"Add my lorry", "Register my vehicle", "Create a new truck", "New truck"},
			Keywords:     []string{"add", "truck", "lorry", "vehicle", "register"},
			Examples: []string{
				"Add my truck",
				"Add my truck vehicle number MH12AB1234",
				"Add my truck capacity 5 tons location Mumbai",
				"Add my truck vehicle number MH12AB1234 capacity 5 tons location Mumbai contact 9876543210",
			},
			Description: "Opens the form to register a new truck or lorry",
			Patterns: patterns(
				"add [my|a] [new] (truck|lorry|vehicle)",
				"register [my|a] [new] (truck|lorry|vehicle)",
				"create [a|my] [new] (truck|lorry|vehicle)",
				"new (truck|lorry|vehicle)",
			),
		},
		{
			ID:           AddDelivery,
			Primary:      "Add delivery",
			Alternatives: []string{"Add shipment", "Create delivery", "New delivery", "Add order"},
			Keywords:     []string{"add", "delivery", "shipment", "order", "request"},
			Examples: []string{
				"Add delivery",
				"Add delivery goods type electronics",
				"Add delivery pickup location Mumbai drop location Delhi",
				"Add delivery goods type furniture weight 100 kg pickup location Mumbai drop location Delhi",
			},
			Description: "Opens the form to create a new delivery request",
			Patterns: patterns(
				"add [my|a] [new] (delivery|shipment|order)",
				"create [a|my] [new] (delivery|shipment|order)",
				"new (delivery|shipment|order)",
				"request [a] (delivery|shipment)",
			),
		},
		{
			ID:           GoHome,
			Primary:      "Go home",
			Alternatives: []string{"Go to home", "Show home", "Navigate to home", "Home page"},
			Keywords:     []string{"home", "main", "navigate"},
			Examples:     []string{"Go home", "Go to home", "Show me home"},
			Description:  "Navigates to the home page",
			Patterns: patterns(
				"go [to] [the] (home|main page)",
				"show [me] [the] (home|main page)",
				"navigate to [the] (home|main)",
				"^ [the] home [page] $",
			),
		},
		{
			ID:           GoDashboard,
			Primary:      "Go to dashboard",
			Alternatives: []string{"Show dashboard", "Open dashboard", "My dashboard", "Dashboard"},
			Keywords:     []string{"dashboard", "open"},
			Examples:     []string{"Go to dashboard", "Show my dashboard", "Open dashboard"},
			Description:  "Navigates to your dashboard",
			Patterns: patterns(
				"(go to|show|show me|open) [my|the] dashboard",
				"^ [my|the] dashboard $",
			),
		},
		{
			ID:           MyLorries,
			Primary:      "Show my lorries",
			Alternatives: []string{"My lorries", "View lorries", "Show trucks", "My vehicles"},
			Keywords:     []string{"lorries", "trucks", "vehicles", "show", "view"},
			Examples:     []string{"Show my lorries", "View my trucks", "My lorries"},
			Description:  "View your registered lorries (transporters only)",
			Patterns: patterns(
				"(show|show me|go to|open|view) [my|the] (lorries|trucks|vehicles)",
				"^ my (lorries|trucks|vehicles) $",
			),
		},
		{
			ID:           MyDeliveries,
			Primary:      "Show my deliveries",
			Alternatives: []string{"My deliveries", "View deliveries", "Show shipments", "My orders"},
			Keywords:     []string{"deliveries", "shipments", "orders", "show", "view"},
			Examples:     []string{"Show my deliveries", "View my deliveries", "My deliveries"},
			Description:  "View your delivery requests (shippers only)",
			Patterns: patterns(
				"(show|show me|go to|open|view) [my|the] (deliveries|shipments|orders)",
				"^ my (deliveries|shipments|orders) $",
			),
		},
		{
			ID:           GoProfile,
			Primary:      "Go to profile",
			Alternatives: []string{"Show profile", "My profile", "View profile", "Open profile"},
			Keywords:     []string{"profile", "account"},
			Examples:     []string{"Go to profile", "Show my profile", "My profile"},
			Description:  "Opens your profile page",
			Patterns: patterns(
				"(go to|show|show me|open|view) [my|the] profile",
				"^ my profile $",
			),
		},
		{
			ID:           ChangeLanguage,
			Primary:      "Change language",
			Alternatives: []string{"Switch language", "Speak in Hindi", "Switch to Marathi"},
			Keywords:     []string{"language", "change", "switch", "english", "hindi", "marathi"},
			Examples:     []string{"Change language to Hindi", "Switch to Marathi", "Speak in English"},
			Description:  "Switches the interface language between English, Hindi and Marathi",
			Patterns: patterns(
				"(change|switch|set) [the] language",
				"(switch|change) to (english|hindi|marathi)",
				"(speak|talk) in (english|hindi|marathi)",
			),
		},
		{
			ID:           Help,
			Primary:      "Help",
			Alternatives: []string{"Show commands", "What can you do", "Show help", "Commands"},
			Keywords:     []string{"help", "commands"},
			Examples:     []string{"Help", "Show commands", "What can you do", "Show help"},
			Description:  "Shows available voice commands",
			Patterns: patterns(
				"(help|commands|what can you do|what commands)",
				"how do i use",
				"what are the voice commands",
			),
		},
	}
}
