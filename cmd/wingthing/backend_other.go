//go:build !linux && !tinygo

package main

import (
	"errors"

	"github.com/wingthing/wingthing-go/pkg/actuator"
)

func newPeriphGenerator() (actuator.Generator, error) {
	return nil, errors.New("periph backend requires linux")
}
