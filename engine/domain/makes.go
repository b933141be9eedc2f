package domain

import (
	"sort"
	"strings"
)

// SupportedMakes maps make names to their known models. The form offers them
// as suggestions; unknown makes are still accepted.
var SupportedMakes = map[string][]string{
	"Toyota":        {"Camry", "Corolla", "RAV4", "Highlander", "Tacoma", "Tundra", "4Runner", "Prius", "Sienna", "Land Cruiser"},
	"Honda":         {"Civic", "Accord", "CR-V", "Pilot", "Odyssey", "HR-V", "Ridgeline", "Fit"},
	"Ford":          {"F-150", "F-250", "Mustang", "Explorer", "Escape", "Ranger", "Bronco", "Expedition", "Maverick", "Transit"},
	"Chevrolet":     {"Silverado", "Equinox", "Malibu", "Traverse", "Tahoe", "Suburban", "Colorado", "Camaro", "Corvette", "Bolt"},
	"BMW":           {"3 Series", "5 Series", "7 Series", "X3", "X5", "X7", "M3", "i4", "iX"},
	"Mercedes-Benz": {"C-Class", "E-Class", "S-Class", "GLC", "GLE", "GLS", "A-Class", "Sprinter"},
	"Audi":          {"A3", "A4", "A6", "Q3", "Q5", "Q7", "Q8", "e-tron"},
	"Nissan":        {"Altima", "Sentra", "Rogue", "Pathfinder", "Frontier", "Titan", "Leaf", "Armada"},
	"Hyundai":       {"Elantra", "Sonata", "Tucson", "Santa Fe", "Kona", "Palisade", "Ioniq 5"},
	"Kia":           {"Forte", "K5", "Sportage", "Telluride", "Sorento", "Soul", "EV6", "Carnival"},
	"Volkswagen":    {"Golf", "Jetta", "Tiguan", "Atlas", "ID.4", "Passat", "Beetle"},
	"Subaru":        {"Outback", "Forester", "Crosstrek", "Impreza", "WRX", "Ascent"},
	"Mazda":         {"Mazda3", "Mazda6", "CX-5", "CX-9", "CX-30", "MX-5 Miata"},
	"Jeep":          {"Wrangler", "Grand Cherokee", "Cherokee", "Compass", "Gladiator", "Wagoneer"},
	"Ram":           {"1500", "2500", "3500", "ProMaster"},
	"GMC":           {"Sierra", "Terrain", "Acadia", "Yukon", "Canyon"},
	"Dodge":         {"Charger", "Challenger", "Durango", "Grand Caravan"},
	"Lexus":         {"ES", "IS", "RX", "NX", "GX", "LX"},
	"Tesla":         {"Model 3", "Model Y", "Model S", "Model X", "Cybertruck"},
	"Volvo":         {"XC90", "XC60", "XC40", "S60", "V60"},
}

// makeAliases maps lowercase nicknames to canonical make names.
var makeAliases = map[string]string{
	"chevy":     "Chevrolet",
	"merc":      "Mercedes-Benz",
	"mercedes":  "Mercedes-Benz",
	"benz":      "Mercedes-Benz",
	"vw":        "Volkswagen",
	"dodge ram": "Ram",
}

// CanonicalMake trims s and maps known aliases and case variants to the
// canonical make name. Unknown makes are returned trimmed.
func CanonicalMake(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	if c, ok := makeAliases[lower]; ok {
		return c
	}
	for name := range SupportedMakes {
		if strings.ToLower(name) == lower {
			return name
		}
	}
	return s
}

// MakeSuggestions returns the supported makes sorted by name.
func MakeSuggestions() []string {
	out := make([]string, 0, len(SupportedMakes))
	for name := range SupportedMakes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
