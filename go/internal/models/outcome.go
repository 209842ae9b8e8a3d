package models

import (
	"strconv"
	"strings"
)

// Outcome is one animal that can win a draw.
type Outcome struct {
	Code  string `json:"code" yaml:"code"`
	Name  string `json:"name" yaml:"name"`
	Color string `json:"color,omitempty" yaml:"color,omitempty"`
}

// IndexOfOutcome returns the position of the outcome named name, or -1.
// Names are compared case-insensitively after trimming.
func IndexOfOutcome(outcomes []Outcome, name string) int {
	name = strings.TrimSpace(name)
	if name == "" {
		return -1
	}
	for i, o := range outcomes {
		if strings.EqualFold(strings.TrimSpace(o.Name), name) {
			return i
		}
	}
	return -1
}

// DefaultOutcomes is the standard 38-animal catalog (0, 00, 1-36).
func DefaultOutcomes() []Outcome {
	names := []string{
		"Carnero", "Toro", "Ciempiés", "Alacrán", "León", "Rana", "Perico", "Ratón", "Águila",
		"Tigre", "Gato", "Caballo", "Mono", "Paloma", "Zorro", "Oso", "Pavo", "Burro", "Chivo",
		"Cochino", "Gallo", "Camello", "Cebra", "Iguana", "Gallina", "Vaca", "Perro", "Zamuro",
		"Elefante", "Caimán", "Lapa", "Ardilla", "Pescado", "Venado", "Jirafa", "Culebra",
	}
	outcomes := []Outcome{
		{Code: "0", Name: "Delfín", Color: "green"},
		{Code: "00", Name: "Ballena", Color: "green"},
	}
	for i, name := range names {
		color := "black"
		if (i+1)%2 == 1 {
			color = "red"
		}
		outcomes = append(outcomes, Outcome{Code: strconv.Itoa(i + 1), Name: name, Color: color})
	}
	return outcomes
}
