//go:build windows

package main

import (
	"simbridge/pkg/sim"
	"simbridge/pkg/sim/simconnect"
)

func newSimConnectClient(appName, dllPath string) (sim.Client, error) {
	c, err := simconnect.NewClient(appName, dllPath)
	if err != nil {
		return nil, err
	}
	return c, nil
}
