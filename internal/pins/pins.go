// Package pins maps station types to the icon identifiers understood by the
// edastro galaxy-map viewer.
package pins

// DefaultPin is used for any station type not present in the table.
const DefaultPin = "orange"

// typeToPin follows the edastro.com marker documentation.
var typeToPin = map[string]string{
	"Asteroid base":       "asteroidbase",
	"Coriolis Starport":   "coriolis",
	"Dodec Starport":      "dodec",
	"Drake-Class Carrier": "carrier",
	"Ocellus Starport":    "ocellus",
	"Orbis Starport":      "orbis",
	"Outpost":             "outpost",
	"Planetary Outpost":   "planetarybase",
}

// Resolve returns the pin for a station type, or DefaultPin when the type is
// unknown. Unknown types are not an error.
func Resolve(stationType string) string {
	if pin, ok := typeToPin[stationType]; ok {
		return pin
	}
	return DefaultPin
}
