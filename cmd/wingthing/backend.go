package main

import (
	"fmt"

	"github.com/wingthing/wingthing-go/pkg/actuator"
)

func newGenerator(backend string) (actuator.Generator, error) {
	switch backend {
	case "sim":
		return actuator.NewSimGenerator(), nil
	case "periph":
		return newPeriphGenerator()
	default:
		return nil, fmt.Errorf("unknown backend %q (want sim or periph)", backend)
	}
}
