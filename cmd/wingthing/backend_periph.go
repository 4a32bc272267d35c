//go:build linux && !tinygo

package main

import "github.com/wingthing/wingthing-go/pkg/actuator"

func newPeriphGenerator() (actuator.Generator, error) {
	return actuator.NewPeriphGenerator(), nil
}
