//go:build !windows

package main

import (
	"errors"

	"simbridge/pkg/sim"
)

func newSimConnectClient(string, string) (sim.Client, error) {
	return nil, errors.New("SimConnect is only available on Windows")
}
