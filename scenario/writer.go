package scenario

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samaelod/aileron/types"
)

func Write(w io.Writer, s *Scenario) error {
	sc := s.Session

	fmt.Fprintln(w, "local scenario = {}")
	fmt.Fprintln(w)
	if s.Name != "" {
		fmt.Fprintf(w, "scenario.name = %q\n", s.Name)
	}
	if s.Description != "" {
		fmt.Fprintf(w, "scenario.description = %q\n", s.Description)
	}
	if s.Name != "" || s.Description != "" {
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "-- INITIAL CONDITIONS -----------------------------")
	fmt.Fprintf(w, "scenario.altitude = %s -- ft\n", num(sc.Altitude))
	fmt.Fprintf(w, "scenario.speed = %s -- kts\n", num(sc.Speed))
	fmt.Fprintf(w, "scenario.roll = %s -- deg\n", num(sc.Roll))
	fmt.Fprintf(w, "scenario.pitch = %s -- deg\n", num(sc.Pitch))
	fmt.Fprintf(w, "scenario.heading = %s -- deg\n", num(sc.Heading))
	fmt.Fprintf(w, "scenario.throttle = %d -- 0-100\n", sc.Throttle)
	fmt.Fprintf(w, "scenario.engine = %t\n", sc.Engine)
	fmt.Fprintln(w)

	_, err := fmt.Fprintln(w, "return scenario")
	return err
}

// Template writes a starter scenario with the default conditions.
func Template(w io.Writer) error {
	return Write(w, &Scenario{
		Name:        "cruise",
		Description: "Level flight, engine running",
		Session:     types.DefaultSessionConfig(),
	})
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
